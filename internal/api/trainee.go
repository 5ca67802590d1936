package api

import (
	"context"
	"net/http"
	"net/url"
)

// PersonalTrainings lists the trainings recorded for a document number. The
// endpoint is public and no token is sent.
func (c *Client) PersonalTrainings(ctx context.Context, documentNumber string) ([]Training, error) {
	raw, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/capacitaciones/personal/" + url.PathEscape(documentNumber),
		fallback: "No se encontraron capacitaciones",
	})
	if err != nil {
		return nil, err
	}
	var out []Training
	if err := decodeInto(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
