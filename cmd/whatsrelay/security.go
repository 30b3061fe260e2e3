package main

import (
	"errors"
	"io"
	"net/http"

	apperrors "whatsrelay/internal/errors"
	"whatsrelay/internal/models"
	"whatsrelay/pkg/whatsapp"
)

// pullSecretParam is the query parameter carrying the pull secret
const pullSecretParam = "secret"

// readWebhookBody reads at most limit bytes of the request body
func readWebhookBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, apperrors.NewPayloadTooLargeError(maxErr.Limit)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeBodyReadFailed, "failed to read request body")
	}
	return body, nil
}

// authorizePull checks the pull secret in constant time. An empty configured
// secret rejects every request.
func authorizePull(r *http.Request, secrets models.Secrets) bool {
	return whatsapp.SecretEqual(r.URL.Query().Get(pullSecretParam), secrets.PullSecret)
}
