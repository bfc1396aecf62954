package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Emmanuelcsam/WhatNow--sub001/internal/domain"
)

// DuckDuckGo queries the instant-answer API. Related topics are flattened
// recursively into search hits.
type DuckDuckGo struct {
	client  *resty.Client
	baseURL string
}

func NewDuckDuckGo(client *resty.Client) *DuckDuckGo {
	return &DuckDuckGo{client: client, baseURL: "https://api.duckduckgo.com"}
}

func (p *DuckDuckGo) Descriptor() domain.Descriptor {
	return domain.Descriptor{
		Name:         "duckduckgo",
		Capabilities: []domain.Capability{domain.CapabilitySearch},
		CallTimeout:  10 * time.Second,
		Rate:         domain.RatePolicy{Calls: 30, Window: time.Minute},
		Weight:       0.70,
	}
}

func (p *DuckDuckGo) Fetch(ctx context.Context, q domain.Query) ([]byte, error) {
	if len(q.Terms) == 0 {
		return nil, errors.New("duckduckgo: query has no terms")
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":             strings.Join(q.Terms, " "),
			"format":        "json",
			"no_html":       "1",
			"skip_disambig": "1",
		}).
		Get(p.baseURL + "/")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo: status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

type ddgTopic struct {
	Text     string     `json:"Text"`
	FirstURL string     `json:"FirstURL"`
	Topics   []ddgTopic `json:"Topics"`
}

func (p *DuckDuckGo) Normalize(payload []byte) ([]domain.SearchHit, error) {
	var body struct {
		AbstractText  string     `json:"AbstractText"`
		AbstractURL   string     `json:"AbstractURL"`
		Heading       string     `json:"Heading"`
		RelatedTopics []ddgTopic `json:"RelatedTopics"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}

	now := time.Now()
	var hits []domain.SearchHit
	if body.AbstractText != "" && body.AbstractURL != "" {
		hits = append(hits, domain.SearchHit{
			Title:     body.Heading,
			URL:       body.AbstractURL,
			Snippet:   body.AbstractText,
			Source:    "duckduckgo",
			Retrieved: now,
		})
	}

	var walk func(topic ddgTopic)
	walk = func(topic ddgTopic) {
		if topic.Text != "" && topic.FirstURL != "" {
			title, snippet := splitTopicText(topic.Text)
			hits = append(hits, domain.SearchHit{
				Title:     title,
				URL:       topic.FirstURL,
				Snippet:   snippet,
				Source:    "duckduckgo",
				Retrieved: now,
			})
		}
		for _, child := range topic.Topics {
			walk(child)
		}
	}
	for _, topic := range body.RelatedTopics {
		walk(topic)
	}
	return hits, nil
}

func splitTopicText(text string) (title, snippet string) {
	parts := strings.SplitN(text, " - ", 2)
	if len(parts) == 2 {
		return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	}
	return strings.TrimSpace(text), ""
}
