// Package http provides HTTP server and handler implementations.
//
// This file decodes interaction events from request bodies. Both JSON and
// form-encoded bodies are accepted so the page works with and without
// scripts.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"budgetdash/internal/core"
)

const maxEventBody = 64 << 10

var errBadRequest = errors.New("bad request")

// eventRequest is the wire form of core.Event.
type eventRequest struct {
	Type  string   `json:"type"`
	Years []string `json:"years,omitempty"`
	Mode  string   `json:"mode,omitempty"`
	Key   string   `json:"key,omitempty"`
}

// ParseEvent reads one event from the request body.
func ParseEvent(w http.ResponseWriter, r *http.Request) (core.Event, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxEventBody)

	var req eventRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseForm(); err != nil {
			return core.Event{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		req = eventRequest{
			Type:  r.PostForm.Get("type"),
			Years: splitYears(r.PostForm["years"]),
			Mode:  r.PostForm.Get("mode"),
			Key:   r.PostForm.Get("key"),
		}
	default:
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return core.Event{}, fmt.Errorf("%w: empty body", errBadRequest)
			}
			return core.Event{}, fmt.Errorf("%w: %v", errBadRequest, err)
		}
	}
	return req.toEvent()
}

func (req eventRequest) toEvent() (core.Event, error) {
	ev := core.Event{Type: core.EventType(strings.TrimSpace(req.Type))}
	switch ev.Type {
	case core.EventYearsChanged:
		ev.Years = make([]core.Year, 0, len(req.Years))
		for _, y := range req.Years {
			if y = strings.TrimSpace(y); y != "" {
				ev.Years = append(ev.Years, core.Year(y))
			}
		}
	case core.EventRankModeChanged:
		mode, err := core.ParseRankMode(req.Mode)
		if err != nil {
			return core.Event{}, err
		}
		ev.Mode = mode
	case core.EventAccountClicked, core.EventCostCenterClicked:
		ev.Key = sanitizeInput(req.Key)
	case core.EventReset:
	default:
		return core.Event{}, fmt.Errorf("%w: unknown type %q", core.ErrInvalidEvent, req.Type)
	}
	return ev, nil
}

// splitYears accepts both repeated fields and a single comma-separated value.
func splitYears(values []string) []string {
	var out []string
	for _, v := range values {
		out = append(out, strings.Split(v, ",")...)
	}
	return out
}
