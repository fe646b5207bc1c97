package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quy-trach/TaskManagement-sub000/pkg/log"
)

func TestLogTarget(t *testing.T) {
	var buf bytes.Buffer
	ctx := log.WithLogger(context.Background(), log.New(log.Config{Level: "info", Output: &buf}))

	LogTarget(ctx, ActionSendMessage, "u1", "c1", "message sent")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, log.LogTypeAudit, entry[log.FieldLogType])
	assert.Equal(t, ActionSendMessage, entry[FieldAction])
	assert.Equal(t, "u1", entry[log.FieldUserID])
	assert.Equal(t, "c1", entry[FieldTargetID])
	assert.Equal(t, "message sent", entry["message"])
}
