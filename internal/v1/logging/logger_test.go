package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fieldKeys(fields []zap.Field) []string {
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	return keys
}

func TestAppendContextFields(t *testing.T) {
	ctx := WithSession(context.Background(), "sock-1", "alice")

	fields := appendContextFields(ctx, []zap.Field{zap.String("room", "lobby")})

	keys := fieldKeys(fields)
	assert.Contains(t, keys, "socket_id")
	assert.Contains(t, keys, "username")
	assert.Contains(t, keys, "service")
	assert.Contains(t, keys, "room")
}

func TestWithSession_EmptyUsernameOmitted(t *testing.T) {
	ctx := WithSession(context.Background(), "sock-1", "")

	fields := appendContextFields(ctx, nil)

	keys := fieldKeys(fields)
	assert.Contains(t, keys, "socket_id")
	assert.NotContains(t, keys, "username")
}

func TestAppendContextFields_NilContext(t *testing.T) {
	fields := appendContextFields(nil, []zap.Field{zap.Int("n", 1)})
	assert.Equal(t, []string{"n"}, fieldKeys(fields))
}

func TestGetLogger_NeverNil(t *testing.T) {
	require.NotNil(t, GetLogger())
}
