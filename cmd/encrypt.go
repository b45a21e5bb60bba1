package cmd

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/wecombot/internal/config"
	"github.com/ziadkadry99/wecombot/internal/message"
	"github.com/ziadkadry99/wecombot/internal/wxcrypt"
)

var (
	encryptChannel string
	encryptText    string
	encryptChatID  string
	encryptUserID  string
	encryptReply   bool
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt",
	Short: "Build an encrypted callback for local testing",
	Long: `Encrypts a text message with a channel's credentials and prints the signed
query string and XML body the provider would POST, so the server can be
exercised with curl. With --reply, prints an encrypted passive markdown
reply envelope instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ch, err := findChannel(cfg, encryptChannel)
		if err != nil {
			return err
		}
		nonce, err := wxcrypt.GenerateNonce()
		if err != nil {
			return err
		}
		ts := strconv.FormatInt(time.Now().Unix(), 10)
		out := cmd.OutOrStdout()

		if encryptReply {
			envelope, err := buildPassiveReply(ch, encryptText, ts, nonce)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(envelope))
			return nil
		}

		query, body, err := buildCallback(ch, encryptText, encryptChatID, encryptUserID, ts, nonce)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "query: %s\nbody:  %s\n\n", query, body)
		fmt.Fprintf(out, "curl -X POST 'http://localhost:%d/api/bots/wecom/%s?%s' --data '%s'\n",
			cfg.Port, ch.Name, query, body)
		return nil
	},
}

// buildCallback encrypts a text message the way the provider does and
// returns the signed query string and the POST body.
func buildCallback(ch config.ChannelConfig, text, chatID, userID, timestamp, nonce string) (string, string, error) {
	inner, err := xml.Marshal(message.Message{
		MsgID:    uuid.New().String(),
		ChatID:   chatID,
		ChatType: "group",
		From:     message.From{UserID: userID, Name: userID},
		MsgType:  message.TypeText,
		Text:     message.TextContent{Content: text},
	})
	if err != nil {
		return "", "", fmt.Errorf("marshalling message: %w", err)
	}

	ctx, err := wxcrypt.NewContext(ch.Token, ch.AESKey)
	if err != nil {
		return "", "", fmt.Errorf("channel %s: %w", ch.Name, err)
	}
	encrypted, err := ctx.Bind(ch.ReceiverID).Seal(inner)
	if err != nil {
		return "", "", err
	}

	body, err := xml.Marshal(wxcrypt.EncryptedBody{ToUserName: ch.ReceiverID, Encrypt: encrypted})
	if err != nil {
		return "", "", fmt.Errorf("marshalling body: %w", err)
	}
	query := url.Values{
		"msg_signature": {ctx.Sign(timestamp, nonce, encrypted)},
		"timestamp":     {timestamp},
		"nonce":         {nonce},
	}
	return query.Encode(), string(body), nil
}

// buildPassiveReply encrypts a markdown reply into a signed envelope.
func buildPassiveReply(ch config.ChannelConfig, text, timestamp, nonce string) ([]byte, error) {
	reply, err := message.NewMarkdownReply(text).XML()
	if err != nil {
		return nil, err
	}
	mc, err := wxcrypt.NewContext(ch.Token, ch.AESKey)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", ch.Name, err)
	}
	return mc.Bind(ch.ReceiverID).EncryptMsg(reply, timestamp, nonce)
}

func init() {
	encryptCmd.Flags().StringVar(&encryptChannel, "channel", "", "channel name (optional with a single channel)")
	encryptCmd.Flags().StringVar(&encryptText, "text", "hello", "message text")
	encryptCmd.Flags().StringVar(&encryptChatID, "chat-id", "wrkLocalTest", "chat id of the simulated message")
	encryptCmd.Flags().StringVar(&encryptUserID, "user", "tester", "sender user id")
	encryptCmd.Flags().BoolVar(&encryptReply, "reply", false, "print an encrypted passive reply instead of a callback")
	rootCmd.AddCommand(encryptCmd)
}
