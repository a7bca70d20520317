package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/revisitapp/revisit/internal/apiclient"
)

var (
	titleStyle   = color.New(color.FgCyan).Add(color.Bold)
	urlStyle     = color.New(color.FgBlue)
	flippedStyle = color.New(color.FgGreen)
	mutedStyle   = color.New(color.Faint)
)

type cardJSON struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	URL      string  `json:"url"`
	Priority float64 `json:"priority"`
}

type sessionJSON struct {
	State   string `json:"state"`
	Session struct {
		CardIDs    []string   `json:"card_ids"`
		FlippedIDs []string   `json:"flipped_ids"`
		Cards      []cardJSON `json:"cards"`
		Timestamp  int64      `json:"timestamp"`
	} `json:"session"`
}

func connect() (*apiclient.Client, error) {
	c := apiclient.New()
	if !c.Healthy() {
		return nil, fmt.Errorf("revisit server not reachable; start it with 'revisit serve'")
	}
	return c, nil
}

func renderSession(body []byte) error {
	var resp sessionJSON
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("decode session: %w", err)
	}

	if resp.State == "empty" {
		mutedStyle.Println("No cards yet. Run 'revisit refresh' to deal a batch.")
		return nil
	}

	flipped := make(map[string]bool, len(resp.Session.FlippedIDs))
	for _, id := range resp.Session.FlippedIDs {
		flipped[id] = true
	}

	for i, c := range resp.Session.Cards {
		mark := " "
		if flipped[c.ID] {
			mark = flippedStyle.Sprint("✓")
		}
		fmt.Printf("%d. [%s] ", i+1, mark)
		titleStyle.Println(c.Title)
		fmt.Print("       ")
		urlStyle.Println(c.URL)
		mutedStyle.Printf("       id=%s priority=%.2f\n", c.ID, c.Priority)
	}

	if resp.State == "complete" {
		flippedStyle.Println("\nAll flipped. The next refresh deals a fresh batch.")
	}
	return nil
}

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Show the current card session",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		body, err := c.Get("/api/session")
		if err != nil {
			return err
		}
		return renderSession(body)
	},
}

var refreshForce bool

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the card session",
	Long:  "Re-render the current cards, or deal a new batch when none are active. Use --force to discard the current batch.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]bool{"force": refreshForce})
		body, err := c.Post("/api/session/refresh", payload)
		if err != nil {
			return err
		}
		return renderSession(body)
	},
}

var flipCmd = &cobra.Command{
	Use:   "flip [card-id]",
	Short: "Flip a card, marking it reviewed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]string{"id": args[0]})
		body, err := c.Post("/api/session/flip", payload)
		if err != nil {
			return err
		}
		return renderSession(body)
	},
}

var skipCmd = &cobra.Command{
	Use:   "skip [card-id]",
	Short: "Skip a card for the rest of this server run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]string{"id": args[0]})
		body, err := c.Post("/api/session/skip", payload)
		if err != nil {
			return err
		}
		return renderSession(body)
	},
}

var blockKind string

var blockCmd = &cobra.Command{
	Use:   "block [value]",
	Short: "Block a bookmark, folder, or domain from selection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]string{"kind": blockKind, "value": args[0]})
		if _, err := c.Post("/api/blocklist", payload); err != nil {
			return err
		}
		flippedStyle.Printf("blocked %s %s\n", blockKind, args[0])
		return nil
	},
}

var postponeDays int

var postponeCmd = &cobra.Command{
	Use:   "postpone [card-id]",
	Short: "Push a bookmark out of rotation for a while",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		payload, _ := json.Marshal(map[string]any{"id": args[0], "days": postponeDays})
		body, err := c.Post("/api/postpone", payload)
		if err != nil {
			return err
		}
		var resp struct {
			Until int64 `json:"until"`
		}
		json.Unmarshal(body, &resp)
		flippedStyle.Printf("postponed %s until %s\n", args[0], time.UnixMilli(resp.Until).Format("2006-01-02"))
		return nil
	},
}

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Recompute base scores for all bookmarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		if _, err := c.Post("/api/rescore", nil); err != nil {
			return err
		}
		fmt.Println("rescoring started")
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show review activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := connect()
		if err != nil {
			return err
		}
		body, err := c.Get("/api/stats")
		if err != nil {
			return err
		}

		var stats map[string]any
		if err := json.Unmarshal(body, &stats); err != nil {
			return fmt.Errorf("decode stats: %w", err)
		}

		fmt.Printf("session:   %v\n", stats["session"])
		for _, key := range []string{"reviewed", "due", "flips", "postponed", "blocked"} {
			n := 0
			if v, ok := stats[key].(float64); ok {
				n = int(v)
			}
			fmt.Printf("%-10s %s\n", key+":", strconv.Itoa(n))
		}
		return nil
	},
}

func init() {
	refreshCmd.Flags().BoolVarP(&refreshForce, "force", "f", false, "Discard the current batch and reselect")
	blockCmd.Flags().StringVarP(&blockKind, "kind", "k", "domain", "What to block: bookmark, folder, or domain")
	postponeCmd.Flags().IntVarP(&postponeDays, "days", "d", 0, "Days to postpone (default 7)")
}
