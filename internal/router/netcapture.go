package router

import (
	"encoding/base64"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/surfbridge/surf/internal/capture"
	"github.com/surfbridge/surf/internal/obslog"
)

// StartCapture begins streaming ts's network traffic into store. It
// guards the per-tab capture state machine so a tab cannot be started
// twice concurrently.
func (ts *tabSession) StartCapture(store *capture.Store) error {
	if err := ts.capture.transition(captureStarting); err != nil {
		return err
	}

	page := ts.page
	log := obslog.For("router").Sugar()

	stop := page.EachEvent(
		func(ev *proto.NetworkResponseReceived) {
			go recordResponse(store, page, ev, log)
		},
	)

	ts.mu.Lock()
	ts.netStop = stop
	ts.mu.Unlock()

	return ts.capture.transition(captureOn)
}

func (ts *tabSession) StopCapture() error {
	if err := ts.capture.transition(captureStopping); err != nil {
		return err
	}
	ts.mu.Lock()
	stop := ts.netStop
	ts.netStop = nil
	ts.mu.Unlock()
	if stop != nil {
		stop()
	}
	return ts.capture.transition(captureOff)
}

func recordResponse(store *capture.Store, page *rod.Page, ev *proto.NetworkResponseReceived, log interface {
	Warnf(string, ...any)
}) {
	resp := ev.Response
	if resp == nil {
		return
	}

	entry := capture.Entry{
		ID:              randomEntryID(),
		Timestamp:       time.Now(),
		URL:             resp.URL,
		Status:          resp.Status,
		ContentType:     resp.MIMEType,
		ResponseHeaders: flattenHeaders(resp.Headers),
	}

	body, err := proto.NetworkGetResponseBody{RequestID: ev.RequestID}.Call(page)
	if err == nil && body != nil {
		raw := []byte(body.Body)
		if body.Base64Encoded {
			if decoded, derr := base64.StdEncoding.DecodeString(body.Body); derr == nil {
				raw = decoded
			}
		}
		if hash, werr := store.WriteBody(raw, capture.Response); werr == nil {
			entry.ResponseBodyHash = hash
		} else {
			log.Warnf("write response body: %v", werr)
		}
	}

	if err := store.Append(entry); err != nil {
		log.Warnf("append capture entry: %v", err)
	}
}

func flattenHeaders(h proto.NetworkHeaders) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = stringifyHeaderValue(v)
	}
	return out
}

func stringifyHeaderValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// randomEntryID builds the timestamp-random id §3 specifies for network
// entries.
func randomEntryID() string {
	id, err := randomID()
	if err != nil {
		id = "0"
	}
	return time.Now().Format("20060102T150405.000000000") + "-" + id
}
