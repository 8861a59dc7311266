package dashboard

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/app/dashboard/controller"
	"github.com/canopy-network/hydrodash/app/dashboard/types"
)

// NewServer builds the router and attaches the HTTP server to app.
func NewServer(app *types.App) error {
	ctler := controller.NewController(app)
	router, err := ctler.NewRouter()
	if err != nil {
		return err
	}

	app.Server = &http.Server{Addr: app.Config.Addr, Handler: controller.WithCORS(router, app.Config.AllowedOrigins)}
	app.Logger.Info("Starting server", zap.String("addr", app.Config.Addr))

	return nil
}
