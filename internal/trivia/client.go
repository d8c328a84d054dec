package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"triviahome/internal/model"
)

// Provider supplies question sets for the game engine. An empty result
// with a nil error means "no questions available for these criteria".
type Provider interface {
	FetchQuestions(ctx context.Context, opts FetchOptions) ([]model.Question, error)
}

// FetchOptions configure a question fetch.
type FetchOptions struct {
	Amount     int
	Categories []string // category IDs; empty or ["any"] means all
	Difficulty string   // easy, medium, hard, or any
	Type       string   // multiple, boolean, or any
}

// Client wraps the Open Trivia Database API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new trivia API client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://opentdb.com"
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type apiQuestion struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type questionsResponse struct {
	ResponseCode int           `json:"response_code"`
	Results      []apiQuestion `json:"results"`
}

type categoriesResponse struct {
	TriviaCategories []model.Category `json:"trivia_categories"`
}

// FetchQuestions fetches and formats a question set. Options are
// shuffled so the correct answer does not always sit in the same slot.
func (c *Client) FetchQuestions(ctx context.Context, opts FetchOptions) ([]model.Question, error) {
	return c.fetchQuestions(ctx, opts, true)
}

func (c *Client) fetchQuestions(ctx context.Context, opts FetchOptions, allowRetry bool) ([]model.Question, error) {
	amount := opts.Amount
	if amount <= 0 {
		amount = 10
	}

	params := url.Values{}
	params.Set("amount", fmt.Sprintf("%d", amount))
	if cat := joinCategories(opts.Categories); cat != "" {
		params.Set("category", cat)
	}
	if opts.Difficulty != "" && opts.Difficulty != "any" {
		params.Set("difficulty", opts.Difficulty)
	}
	if opts.Type != "" && opts.Type != "any" {
		params.Set("type", opts.Type)
	}

	var resp questionsResponse
	if err := c.getJSON(ctx, "/api.php?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	if resp.ResponseCode != 0 {
		// Code 1 means no results for the given criteria. Retry once with
		// a broad query before giving up.
		if resp.ResponseCode == 1 && allowRetry {
			log.Printf("trivia: no results for criteria, retrying with broad search")
			return c.fetchQuestions(ctx, FetchOptions{Amount: amount, Type: "multiple"}, false)
		}
		return nil, fmt.Errorf("trivia API error: code %d", resp.ResponseCode)
	}

	questions := make([]model.Question, 0, len(resp.Results))
	for _, q := range resp.Results {
		options := make([]string, 0, len(q.IncorrectAnswers)+1)
		for _, a := range q.IncorrectAnswers {
			options = append(options, html.UnescapeString(a))
		}
		correct := html.UnescapeString(q.CorrectAnswer)
		options = append(options, correct)
		if q.Type == "multiple" {
			shuffle(options)
		}

		questions = append(questions, model.Question{
			QuestionText:  html.UnescapeString(q.Question),
			CorrectAnswer: correct,
			Options:       options,
			Type:          q.Type,
			Category:      html.UnescapeString(q.Category),
			Difficulty:    q.Difficulty,
		})
	}
	return questions, nil
}

// FetchCategories lists the available trivia categories.
func (c *Client) FetchCategories(ctx context.Context) ([]model.Category, error) {
	var resp categoriesResponse
	if err := c.getJSON(ctx, "/api_category.php", &resp); err != nil {
		return nil, err
	}
	categories := resp.TriviaCategories
	for i := range categories {
		categories[i].Name = html.UnescapeString(categories[i].Name)
	}
	return categories, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("trivia API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("trivia API returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// joinCategories turns the settings category list into the API's
// comma-separated form. The "any" sentinel selects all categories.
func joinCategories(categories []string) string {
	ids := make([]string, 0, len(categories))
	for _, c := range categories {
		if c == "" || c == "any" {
			continue
		}
		ids = append(ids, c)
	}
	return strings.Join(ids, ",")
}

// Fisher-Yates
func shuffle(s []string) {
	for i := len(s) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
