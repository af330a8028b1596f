package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

var (
	mu                sync.Mutex
	categoryCooldowns = make(map[string]time.Time)

	webhookURL string
	pingUserID string
)

const (
	colorOrange = 0xFFA500
	colorRed    = 0xFF4444
	colorGreen  = 0x2ECC71
)

// Init wires the Discord webhook. An empty URL leaves alerting disabled;
// every helper then becomes a no-op.
func Init(url, pingUser string) {
	webhookURL = url
	pingUserID = pingUser
}

type embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Color       int     `json:"color"`
	Fields      []field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp"`
	Footer      *footer `json:"footer,omitempty"`
}

type field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type footer struct {
	Text string `json:"text"`
}

type payload struct {
	Content string  `json:"content,omitempty"`
	Embeds  []embed `json:"embeds"`
}

func send(category string, cooldown time.Duration, ping bool, color int, title, description string, fields map[string]string) {
	if webhookURL == "" {
		return
	}

	mu.Lock()
	now := time.Now()
	if cooldown > 0 {
		if last, ok := categoryCooldowns[category]; ok && now.Sub(last) < cooldown {
			mu.Unlock()
			return
		}
	}
	categoryCooldowns[category] = now
	mu.Unlock()

	var embedFields []field
	for k, v := range fields {
		if v == "" {
			continue
		}
		if len(v) > 1024 {
			v = v[:1021] + "..."
		}
		embedFields = append(embedFields, field{Name: k, Value: v, Inline: true})
	}

	p := payload{
		Embeds: []embed{{
			Title:       title,
			Description: truncate(description, 2048),
			Color:       color,
			Fields:      embedFields,
			Timestamp:   now.UTC().Format(time.RFC3339),
			Footer:      &footer{Text: "clipdock"},
		}},
	}

	if ping && pingUserID != "" {
		p.Content = fmt.Sprintf("<@%s>", pingUserID)
	}

	body, _ := json.Marshal(p)
	go func() {
		resp, err := http.Post(webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			log.Printf("[Discord] send failed: %v", err)
			return
		}
		resp.Body.Close()
	}()
}

func ServerStarted(version, port string) {
	send("server-start", 0, false, colorGreen, "Worker Started", fmt.Sprintf("clipdock %s listening on :%s", version, port), nil)
}

func ServerStopping() {
	send("server-stop", 0, false, colorOrange, "Worker Stopping", "clipdock is shutting down", nil)
}

func DownloadFailed(jobID, url string, err error) {
	send("download", 5*time.Second, true, colorRed, "Download Failed", err.Error(), map[string]string{
		"Job":   jobID,
		"URL":   truncate(url, 200),
		"Error": truncate(err.Error(), 500),
	})
}

func UploadFailed(jobID, bucket string, err error) {
	send("upload", 5*time.Second, true, colorRed, "Upload Failed", err.Error(), map[string]string{
		"Job":    jobID,
		"Bucket": bucket,
		"Error":  truncate(err.Error(), 500),
	})
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
