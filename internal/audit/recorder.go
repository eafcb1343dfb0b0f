// Package audit records security-relevant authentication events to
// Elasticsearch for later analysis. Recording is best-effort: a failed write
// is logged and never fails the flow that produced the event.
package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event actions.
const (
	ActionLoginSuccess   = "login_success"
	ActionLoginFailure   = "login_failure"
	ActionAccountLocked  = "account_locked"
	ActionRegistered     = "registered"
	ActionResetRequested = "reset_requested"
	ActionResetConsumed  = "reset_consumed"
	ActionLogout         = "logout"
)

// Recorder indexes auth events. A nil Recorder or one without a client is a
// no-op, so callers never need to guard.
type Recorder struct {
	ES     *elasticsearch.Client
	Index  string
	Logger *logrus.Logger
}

func NewRecorder(es *elasticsearch.Client, index string, logger *logrus.Logger) *Recorder {
	return &Recorder{ES: es, Index: index, Logger: logger}
}

// Record indexes one event document. Extra fields are merged into the
// document alongside the standard ones.
func (r *Recorder) Record(ctx context.Context, action string, authIdentityID, email string, extra map[string]any) {
	if r == nil || r.ES == nil || r.Index == "" {
		return
	}
	doc := map[string]any{
		"action":           action,
		"auth_identity_id": authIdentityID,
		"email":            email,
		"recorded_at":      time.Now().UTC().Format(time.RFC3339Nano),
	}
	for k, v := range extra {
		doc[k] = v
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: r.Index, DocumentID: uuid.NewString(), Body: strings.NewReader(string(b)), Refresh: "false"}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, r.ES)
	if err != nil {
		if r.Logger != nil {
			r.Logger.WithError(err).WithField("action", action).Warn("audit index failed")
		}
		return
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && r.Logger != nil {
		r.Logger.WithField("status", res.Status()).WithField("action", action).Warn("audit index response error")
	}
}
