// internal/service/publishing/infrastructure/delivery_http_adapter.go
package infrastructure

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkg/errors"

	"dealwire/internal/pkg/httpclient"
	rulesdomain "dealwire/internal/service/rules/domain"
)

// TelegramDeliveryAdapter 通过 Bot API 的 sendMessage 投递消息。
// credential 是解密后的 bot token。
type TelegramDeliveryAdapter struct {
	client  *httpclient.Client
	baseURL string
}

func NewTelegramDeliveryAdapter(client *httpclient.Client) *TelegramDeliveryAdapter {
	return &TelegramDeliveryAdapter{client: client, baseURL: "https://api.telegram.org"}
}

// SetBaseURL 仅测试使用。
func (a *TelegramDeliveryAdapter) SetBaseURL(url string) { a.baseURL = url }

func (a *TelegramDeliveryAdapter) Send(ctx context.Context, channel *rulesdomain.Channel, credential, message string) (string, error) {
	reqURL := fmt.Sprintf("%s/bot%s/sendMessage", a.baseURL, credential)
	payload := map[string]interface{}{
		"chat_id":                  channel.ChatID,
		"text":                     message,
		"disable_web_page_preview": false,
	}
	var resp struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
		Result      struct {
			MessageID int64 `json:"message_id"`
		} `json:"result"`
	}
	if err := a.client.PostJSON(ctx, reqURL, payload, &resp); err != nil {
		return "", err
	}
	if !resp.OK {
		return "", errors.Errorf("telegram rejected message: %s", resp.Description)
	}
	return strconv.FormatInt(resp.Result.MessageID, 10), nil
}
