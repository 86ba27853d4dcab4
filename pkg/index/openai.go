package index

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAI implements DocumentIndex and VisionAnalyzer on top of OpenAI vector
// stores and the assistants file_search tool.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds the client from an API key. Model defaults to gpt-4o-mini
// when empty.
func NewOpenAI(apiKey, model string) *OpenAI {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}
}

func (o *OpenAI) Index(ctx context.Context, name string, files []File) (string, error) {
	store, err := o.client.CreateVectorStore(ctx, openai.VectorStoreRequest{Name: name})
	if err != nil {
		return "", fmt.Errorf("index: create vector store: %w", err)
	}
	uploaded := 0
	for _, f := range files {
		file, err := o.client.CreateFileBytes(ctx, openai.FileBytesRequest{
			Name:    f.Name,
			Bytes:   f.Data,
			Purpose: openai.PurposeAssistants,
		})
		if err != nil {
			log.Printf("index: upload %s failed: %v", f.Name, err)
			continue
		}
		if _, err := o.client.CreateVectorStoreFile(ctx, store.ID, openai.VectorStoreFileRequest{FileID: file.ID}); err != nil {
			log.Printf("index: attach %s to store %s failed: %v", f.Name, store.ID, err)
			continue
		}
		uploaded++
	}
	log.Printf("index: store %s created with %d/%d files", store.ID, uploaded, len(files))
	return store.ID, nil
}

func (o *OpenAI) Drop(ctx context.Context, storeID string) error {
	// remove the files first so they do not linger in account storage
	list, err := o.client.ListVectorStoreFiles(ctx, storeID, openai.Pagination{})
	if err != nil {
		log.Printf("index: list files of store %s failed: %v", storeID, err)
	} else {
		for _, f := range list.VectorStoreFiles {
			if err := o.client.DeleteVectorStoreFile(ctx, storeID, f.ID); err != nil {
				log.Printf("index: detach file %s failed: %v", f.ID, err)
			}
			if err := o.client.DeleteFile(ctx, f.ID); err != nil {
				log.Printf("index: delete file %s failed: %v", f.ID, err)
			}
		}
	}
	if _, err := o.client.DeleteVectorStore(ctx, storeID); err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusNotFound {
			return ErrStoreNotFound
		}
		return fmt.Errorf("index: delete vector store: %w", err)
	}
	return nil
}

// Query runs one assistant turn bound to the store via file_search. The
// assistant is created per call and removed afterwards; history is replayed
// into the thread ahead of the user message.
func (o *OpenAI) Query(ctx context.Context, storeID, system string, history []Message, userMsg string) (string, error) {
	assistant, err := o.client.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        o.model,
		Instructions: &system,
		Tools:        []openai.AssistantTool{{Type: openai.AssistantToolTypeFileSearch}},
		ToolResources: &openai.AssistantToolResource{
			FileSearch: &openai.AssistantToolFileSearch{VectorStoreIDs: []string{storeID}},
		},
	})
	if err != nil {
		return "", fmt.Errorf("index: create assistant: %w", err)
	}
	defer func() {
		if _, err := o.client.DeleteAssistant(context.WithoutCancel(ctx), assistant.ID); err != nil {
			log.Printf("index: delete assistant %s failed: %v", assistant.ID, err)
		}
	}()

	msgs := make([]openai.ThreadMessage, 0, len(history)+1)
	for _, m := range history {
		role := openai.ThreadMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ThreadMessageRoleAssistant
		}
		msgs = append(msgs, openai.ThreadMessage{Role: role, Content: m.Content})
	}
	msgs = append(msgs, openai.ThreadMessage{Role: openai.ThreadMessageRoleUser, Content: userMsg})

	run, err := o.client.CreateThreadAndRun(ctx, openai.CreateThreadAndRunRequest{
		RunRequest: openai.RunRequest{AssistantID: assistant.ID},
		Thread:     openai.ThreadRequest{Messages: msgs},
	})
	if err != nil {
		return "", fmt.Errorf("index: start run: %w", err)
	}
	run, err = o.waitForRun(ctx, run)
	if err != nil {
		return "", err
	}
	return o.lastAssistantText(ctx, run.ThreadID)
}

func (o *OpenAI) waitForRun(ctx context.Context, run openai.Run) (openai.Run, error) {
	for {
		switch run.Status {
		case openai.RunStatusCompleted:
			return run, nil
		case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired:
			return run, fmt.Errorf("index: run %s ended with status %s", run.ID, run.Status)
		}
		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-time.After(time.Second):
		}
		var err error
		run, err = o.client.RetrieveRun(ctx, run.ThreadID, run.ID)
		if err != nil {
			return run, fmt.Errorf("index: poll run: %w", err)
		}
	}
}

func (o *OpenAI) lastAssistantText(ctx context.Context, threadID string) (string, error) {
	limit := 1
	order := "desc"
	list, err := o.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("index: read messages: %w", err)
	}
	if len(list.Messages) == 0 {
		return "", errors.New("index: run produced no messages")
	}
	var b strings.Builder
	for _, part := range list.Messages[0].Content {
		if part.Text != nil {
			b.WriteString(part.Text.Value)
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// AnalyzeImage asks the vision model to describe the image; used as a
// supplement when OCR finds no text.
func (o *OpenAI) AnalyzeImage(ctx context.Context, imageData []byte, prompt string) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imageData)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
			},
		}},
		MaxTokens: 1000,
	})
	if err != nil {
		return "", fmt.Errorf("index: vision request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("index: vision response empty")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
