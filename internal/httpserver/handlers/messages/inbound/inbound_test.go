package inbound_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/skors/reminder-engine/internal/conversation"
	"github.com/skors/reminder-engine/internal/httpserver/handlers/messages/inbound"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockRouter struct {
	mock.Mock
}

func (m *mockRouter) Dispatch(ctx context.Context, msg conversation.Reply) bool {
	args := m.Called(ctx, msg)
	return args.Bool(0)
}

func TestInboundHandler(t *testing.T) {
	type testCase struct {
		name           string
		body           string
		dispatch       bool
		claimed        bool
		expectedStatus int
		expectedErr    string
	}

	cases := []testCase{
		{
			name:           "claimed reply",
			body:           `{"recipient":"U123","content":"yes","reply_to":"msg-1"}`,
			dispatch:       true,
			claimed:        true,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unclaimed message",
			body:           `{"recipient":"U123","content":"hello"}`,
			dispatch:       true,
			claimed:        false,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "invalid JSON",
			body:           `{"recipient":`,
			expectedStatus: http.StatusBadRequest,
			expectedErr:    "invalid JSON format",
		},
		{
			name:           "missing recipient",
			body:           `{"content":"yes"}`,
			expectedStatus: http.StatusBadRequest,
			expectedErr:    "recipient is required",
		},
	}

	for _, tc := range cases {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			router := &mockRouter{}
			if tc.dispatch {
				router.On("Dispatch", mock.Anything, mock.AnythingOfType("conversation.Reply")).
					Return(tc.claimed).
					Once()
			}

			handler := inbound.New(discardLogger(), router)

			req := httptest.NewRequest(http.MethodPost, "/messages/inbound", bytes.NewReader([]byte(tc.body)))
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			require.Equal(t, tc.expectedStatus, rr.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

			if tc.expectedErr != "" {
				errResp := resp["error"].(map[string]any)
				require.Equal(t, tc.expectedErr, errResp["message"])
				return
			}

			require.Equal(t, tc.claimed, resp["claimed"])
			router.AssertExpectations(t)
		})
	}
}
