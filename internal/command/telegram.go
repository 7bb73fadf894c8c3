package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultAPIBase = "https://api.telegram.org"

// TelegramSource polls the Telegram Bot API for operator messages and
// parses them into commands. Only messages from the configured chat are
// accepted; everything else is dropped with a debug log.
type TelegramSource struct {
	token   string
	chatID  int64
	apiBase string // overridable in tests
	client  *http.Client
	logger  *slog.Logger

	// offset is the next update ID to fetch; advancing it marks earlier
	// updates as consumed on Telegram's side.
	offset int64
}

// NewTelegramSource creates a source for the given bot token and chat ID.
func NewTelegramSource(token string, chatID int64, logger *slog.Logger) *TelegramSource {
	return &TelegramSource{
		token:   token,
		chatID:  chatID,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With(slog.String("component", "telegram_commands")),
	}
}

type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

type getUpdatesResponse struct {
	OK     bool             `json:"ok"`
	Result []telegramUpdate `json:"result"`
}

// Drain fetches and parses all pending messages. A transport error
// returns the commands collected so far along with the error; the
// supervisor treats a failed drain as "no commands this cycle".
func (s *TelegramSource) Drain(ctx context.Context) ([]Command, error) {
	q := url.Values{}
	q.Set("timeout", "0")
	if s.offset > 0 {
		q.Set("offset", strconv.FormatInt(s.offset, 10))
	}
	reqURL := fmt.Sprintf("%s/bot%s/getUpdates?%s", s.apiBase, s.token, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("command: create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("command: get updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("command: get updates: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var parsed getUpdatesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("command: decode updates: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("command: get updates: api returned not ok")
	}

	var cmds []Command
	for _, upd := range parsed.Result {
		if upd.UpdateID >= s.offset {
			s.offset = upd.UpdateID + 1
		}
		if upd.Message == nil {
			continue
		}
		if upd.Message.Chat.ID != s.chatID {
			s.logger.Debug("ignoring message from foreign chat",
				slog.Int64("chat_id", upd.Message.Chat.ID),
			)
			continue
		}

		cmd := Parse(upd.Message.Text)
		if cmd.Kind == Unknown {
			s.logger.Debug("ignoring unrecognized command",
				slog.String("text", upd.Message.Text),
			)
			continue
		}
		s.logger.Info("operator command received", slog.String("command", cmd.Kind.String()))
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}
