package controller

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-jose/go-jose/v4/json"
	"go.uber.org/zap"

	"github.com/canopy-network/hydrodash/pkg/session"
	"github.com/canopy-network/hydrodash/pkg/utils"
)

const (
	uploadField     = "file"
	multipartMemory = 32 << 20
)

type loadURLRequest struct {
	URL string `json:"url"`
}

// HandleLoadURL loads the dataset behind an http(s) URL into the caller's session.
func (c *Controller) HandleLoadURL(w http.ResponseWriter, r *http.Request) {
	var req loadURLRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if !utils.IsRemote(req.URL) {
		writeError(w, http.StatusBadRequest, "url must use http or https")
		return
	}

	s := c.session(w, r)
	err := s.Load(r.Context(), req.URL)
	c.writeLoadResult(w, s, err)
}

// HandleUpload loads an uploaded CSV, either a multipart "file" field or the raw body.
func (c *Controller) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, c.App.Config.MaxBodyBytes)

	text, name, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, session.MsgFileLoadFailed)
			return
		}
		c.App.Logger.Debug("Rejected upload", zap.String("session", sessionID(r)), zap.Error(err))
		writeError(w, http.StatusBadRequest, session.MsgFileLoadFailed)
		return
	}

	s := c.session(w, r)
	err = s.LoadText(r.Context(), text, name)
	c.writeLoadResult(w, s, err)
}

func readUpload(r *http.Request) (text, name string, err error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return "", "", err
		}
		return string(raw), "upload.csv", nil
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return "", "", err
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return "", "", err
	}
	defer func() { _ = file.Close() }()

	raw, err := io.ReadAll(file)
	if err != nil {
		return "", "", err
	}
	return string(raw), header.Filename, nil
}

func (c *Controller) writeLoadResult(w http.ResponseWriter, s *session.Session, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.Status())
	case errors.Is(err, session.ErrSuperseded):
		writeError(w, http.StatusConflict, "load superseded by a newer request")
	default:
		msg := s.Status().Error
		if msg == "" {
			msg = session.MsgURLLoadFailed
		}
		writeError(w, http.StatusBadGateway, msg)
	}
}
