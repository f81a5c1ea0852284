package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/dokupintar/dokubot-be/types"
)

var SystemMessageDocumentAssistant = openai.ChatCompletionMessage{
	Role:    openai.ChatMessageRoleSystem,
	Content: "Anda adalah asisten dokumen pajak kendaraan bermotor. Jawab pertanyaan tentang PKB, denda, dan layanan samsat berdasarkan dokumen yang telah diunggah. Jika informasi tidak ada dalam dokumen, cari di basis data sebelum menjawab. Jawab selalu dalam bahasa Indonesia.",
}

type OpenAIService struct {
	client        *openai.Client
	functionsCall map[string]types.FunctionHandler
	tools         []openai.Tool
	model         string
}

func NewOpenAIService(baseURL, apiKey, model string) *OpenAIService {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIService{
		client:        openai.NewClientWithConfig(config),
		functionsCall: make(map[string]types.FunctionHandler),
		tools:         make([]openai.Tool, 0),
		model:         model,
	}
}

func (s *OpenAIService) Chat(ctx context.Context, messages []types.Message) (*types.Message, error) {
	openaiMessages := s.toOpenAIMessages(messages)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Messages: openaiMessages,
			Tools:    s.tools,
			Model:    s.model,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrProviderUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response generated")
	}

	if resp.Choices[0].FinishReason == openai.FinishReasonToolCalls {
		resp, err = s.handleFunctionCall(ctx, openaiMessages, resp)
		if err != nil {
			return nil, err
		}
	}

	return &types.Message{
		Role:    "assistant",
		Content: resp.Choices[0].Message.Content,
	}, nil
}

func (s *OpenAIService) ChatStream(ctx context.Context, messages []types.Message, handler types.StreamHandler) error {
	stream, err := s.client.CreateChatCompletionStream(
		ctx,
		openai.ChatCompletionRequest{
			Messages: s.toOpenAIMessages(messages),
			Tools:    s.tools,
			Model:    s.model,
		},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrProviderUnavailable, err)
	}
	defer stream.Close()
	for {
		resp, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if len(resp.Choices) > 0 {
			handler(resp.Choices[0].Delta.Content)
		}
	}
}

func (s *OpenAIService) toOpenAIMessages(messages []types.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	out = append(out, SystemMessageDocumentAssistant)
	for _, msg := range messages {
		role := msg.Role
		if role == "" {
			role = openai.ChatMessageRoleUser
		}
		out = append(out, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}
	return out
}

func (s *OpenAIService) RegisterFunctionCall(name, description string, params jsonschema.Definition, handler types.FunctionHandler) {
	if s.functionsCall == nil {
		s.functionsCall = make(map[string]types.FunctionHandler)
	}
	f := openai.FunctionDefinition{
		Name:        name,
		Description: description,
		Parameters:  params,
	}
	s.functionsCall[name] = handler
	s.tools = append(s.tools, openai.Tool{
		Type:     openai.ToolTypeFunction,
		Function: &f,
	})
}

// RegisterDocumentSearchTool exposes the retrieval index as a tool the
// model can call when a question needs document evidence. The answer
// synthesizer formats the tool result, so the model receives the same
// Indonesian answer a direct query would produce, plus its sources.
func (s *OpenAIService) RegisterDocumentSearchTool(retriever *Retriever, answers *AnswerService, tenant string) {
	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"query": {
				Type:        jsonschema.String,
				Description: "Pertanyaan atau kata kunci untuk mencari di dokumen yang diunggah",
			},
			"document_id": {
				Type:        jsonschema.String,
				Description: "Batasi pencarian ke satu dokumen (opsional)",
			},
		},
		Required: []string{"query"},
	}
	s.RegisterFunctionCall(
		"search_documents",
		"Mencari informasi PKB, denda, tarif, dan lokasi layanan di dalam dokumen yang telah diunggah",
		params,
		func(ctx context.Context, args []byte) (any, error) {
			var req struct {
				Query      string `json:"query"`
				DocumentID string `json:"document_id"`
			}
			if err := json.Unmarshal(args, &req); err != nil {
				return nil, err
			}
			ranked, err := retriever.Retrieve(ctx, tenant, req.Query, 0, req.DocumentID)
			if err != nil {
				return nil, err
			}
			answer := answers.Synthesize(req.Query, ranked)
			payload, err := json.Marshal(answer)
			if err != nil {
				return nil, err
			}
			return string(payload), nil
		},
	)
}

// RegisterWebSearchTool lets the model fall back to web search when the
// uploaded documents have no answer.
func (s *OpenAIService) RegisterWebSearchTool(search *SearchService) {
	params := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"query": {
				Type:        jsonschema.String,
				Description: "Kata kunci pencarian web",
			},
		},
		Required: []string{"query"},
	}
	s.RegisterFunctionCall(
		"web_search",
		"Mencari informasi terbaru di web ketika dokumen tidak memuat jawabannya",
		params,
		func(ctx context.Context, args []byte) (any, error) {
			var req struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(args, &req); err != nil {
				return nil, err
			}
			return search.SearchJSON(ctx, req.Query)
		},
	)
}

func (s *OpenAIService) handleFunctionCall(ctx context.Context, openaiMessages []openai.ChatCompletionMessage, resp openai.ChatCompletionResponse) (openai.ChatCompletionResponse, error) {
	openaiMessages = append(openaiMessages, resp.Choices[0].Message)
	for _, toolCall := range resp.Choices[0].Message.ToolCalls {
		if toolCall.Type != openai.ToolTypeFunction {
			continue
		}
		handler := s.functionsCall[toolCall.Function.Name]
		if handler == nil {
			return openai.ChatCompletionResponse{}, fmt.Errorf("no handler found for function %s", toolCall.Function.Name)
		}
		result, err := handler(ctx, []byte(toolCall.Function.Arguments))
		if err != nil {
			// Feed the error back instead of failing the whole chat so the
			// model can answer from what it already has.
			log.Printf("tool %s failed: %v", toolCall.Function.Name, err)
			result = fmt.Sprintf("error: %v", err)
		}
		content, ok := result.(string)
		if !ok {
			payload, err := json.Marshal(result)
			if err != nil {
				return openai.ChatCompletionResponse{}, err
			}
			content = string(payload)
		}
		openaiMessages = append(openaiMessages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    content,
			Name:       toolCall.Function.Name,
			ToolCallID: toolCall.ID,
		})
	}
	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Messages: openaiMessages,
			Tools:    s.tools,
			Model:    s.model,
		},
	)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	if len(resp.Choices) == 0 {
		return openai.ChatCompletionResponse{}, errors.New("no response generated")
	}
	if resp.Choices[0].FinishReason == openai.FinishReasonToolCalls {
		return s.handleFunctionCall(ctx, openaiMessages, resp)
	}
	return resp, nil
}
