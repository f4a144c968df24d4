package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newMeetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "meet",
		Aliases: []string{"meeting", "mtg"},
		Short:   "会议管理 (创建、签名)",
	}
	cmd.AddCommand(newMeetCreateCmd())
	cmd.AddCommand(newMeetSignCmd())
	return cmd
}

func newMeetCreateCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "create",
		Short: "创建会议",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}
			client := NewAPIClient(cfg)
			body := map[string]interface{}{
				"topic": mustGetString(cmd, "topic"),
			}
			resp, err := client.Post(cmd.Context(), "/meet", body)
			if err != nil {
				return err
			}

			var result struct {
				Message struct {
					ZoomResponse struct {
						MeetID string `json:"meetId"`
						Topic  string `json:"topic"`
					} `json:"zoomResponse"`
				} `json:"message"`
			}
			if err := json.Unmarshal(resp, &result); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			return printText(cmd.OutOrStdout(), cfg.Output, resp,
				"meetId: "+result.Message.ZoomResponse.MeetID,
				"topic: "+result.Message.ZoomResponse.Topic,
			)
		},
	}
	c.Flags().String("topic", "", "会议主题（必选）")
	_ = c.MarkFlagRequired("topic")
	return c
}

func newMeetSignCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "sign",
		Short: "生成 Meeting SDK 入会签名",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(cmd)
			if err != nil {
				return err
			}
			client := NewAPIClient(cfg)

			body := map[string]interface{}{
				"meetingNumber": mustGetString(cmd, "meeting-number"),
			}
			role, _ := cmd.Flags().GetInt("role")
			body["role"] = role
			addOptionalInt(cmd, body, "expiration", "expirationSeconds")

			resp, err := client.Post(cmd.Context(), "/meet/signature", body)
			if err != nil {
				return err
			}

			var result struct {
				Message struct {
					Signature string `json:"signature"`
				} `json:"message"`
			}
			if err := json.Unmarshal(resp, &result); err != nil {
				return fmt.Errorf("parse response: %w", err)
			}
			return printText(cmd.OutOrStdout(), cfg.Output, resp, result.Message.Signature)
		},
	}
	c.Flags().String("meeting-number", "", "会议号（必选）")
	c.Flags().Int("role", 0, "角色: 0 参会者 / 1 主持人")
	c.Flags().Int("expiration", 0, "签名有效期（秒），默认 7200")
	_ = c.MarkFlagRequired("meeting-number")
	return c
}

// addOptionalInt 如果命令行标志被设置则添加到 body map
func addOptionalInt(cmd *cobra.Command, body map[string]interface{}, flag string, jsonKeys ...string) {
	if !cmd.Flags().Changed(flag) {
		return
	}
	v, _ := cmd.Flags().GetInt(flag)
	key := flag
	if len(jsonKeys) > 0 {
		key = jsonKeys[0]
	}
	body[key] = v
}

// mustGetString 获取必选的字符串标志
func mustGetString(cmd *cobra.Command, flag string) string {
	v, _ := cmd.Flags().GetString(flag)
	return v
}
