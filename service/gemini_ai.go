package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/dokupintar/dokubot-be/types"
)

const geminiSystemInstruction = "Anda adalah asisten dokumen pajak kendaraan bermotor. Jawab pertanyaan tentang PKB, denda, dan layanan samsat berdasarkan dokumen yang telah diunggah. Jawab selalu dalam bahasa Indonesia."

// GeminiService implements AIService over the Gemini API with round-robin
// API key rotation on failures.
type GeminiService struct {
	apiKeys       []string
	currentKey    int
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	functionsCall map[string]types.FunctionHandler
	mu            sync.Mutex
}

func NewGeminiService(apiKeys []string, modelName string) (*GeminiService, error) {
	if len(apiKeys) == 0 {
		return nil, errors.New("no API keys provided")
	}

	service := &GeminiService{
		apiKeys:       apiKeys,
		currentKey:    0,
		modelName:     modelName,
		functionsCall: make(map[string]types.FunctionHandler),
	}
	if err := service.initClient(); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *GeminiService) initClient() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(s.apiKeys[s.currentKey]))
	if err != nil {
		return err
	}
	s.client = client
	model := client.GenerativeModel(s.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(geminiSystemInstruction)},
	}
	if s.model != nil {
		model.Tools = s.model.Tools
	}
	s.model = model
	return nil
}

func (s *GeminiService) rotateAPIKey() error {
	s.mu.Lock()
	s.currentKey = (s.currentKey + 1) % len(s.apiKeys)
	if err := s.client.Close(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()
	return s.initClient()
}

// Chat sends the last message as the prompt with the preceding messages
// as history.
func (s *GeminiService) Chat(ctx context.Context, messages []types.Message) (*types.Message, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages provided")
	}
	prompt := messages[len(messages)-1].Content
	history := make([]*genai.Content, 0, len(messages)-1)
	for _, msg := range messages[:len(messages)-1] {
		role := msg.Role
		if role == "assistant" {
			role = "model"
		}
		history = append(history, &genai.Content{
			Parts: []genai.Part{genai.Text(msg.Content)},
			Role:  role,
		})
	}

	chat := s.model.StartChat()
	chat.History = history

	resp, err := chat.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		if err := s.rotateAPIKey(); err != nil {
			return nil, err
		}
		chat = s.model.StartChat()
		chat.History = history
		resp, err = chat.SendMessage(ctx, genai.Text(prompt))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrProviderUnavailable, err)
		}
	}

	if len(resp.Candidates) == 0 {
		return nil, errors.New("no response generated")
	}
	if funcs := resp.Candidates[0].FunctionCalls(); len(funcs) > 0 {
		resp, err = s.handleFunctionCall(ctx, chat, funcs)
		if err != nil {
			return nil, err
		}
	}

	content := ""
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				content += string(text)
			}
		}
	}
	return &types.Message{Role: "assistant", Content: content}, nil
}

func (s *GeminiService) handleFunctionCall(ctx context.Context, chat *genai.ChatSession, functions []genai.FunctionCall) (*genai.GenerateContentResponse, error) {
	funcResults := []genai.Part{}
	for _, function := range functions {
		handler, exists := s.functionsCall[function.Name]
		if !exists {
			return nil, fmt.Errorf("unknown function: %s", function.Name)
		}
		argsBytes, err := json.Marshal(function.Args)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal function args: %v", err)
		}
		result, err := handler(ctx, argsBytes)
		if err != nil {
			result = fmt.Sprintf("error: %v", err)
		}
		funcResults = append(funcResults, genai.FunctionResponse{
			Name:     function.Name,
			Response: map[string]any{"result": result},
		})
	}
	resp, err := chat.SendMessage(ctx, funcResults...)
	if err != nil {
		return nil, err
	}
	if len(resp.Candidates) == 0 {
		return nil, errors.New("no response generated")
	}
	if funcs := resp.Candidates[0].FunctionCalls(); len(funcs) > 0 {
		return s.handleFunctionCall(ctx, chat, funcs)
	}
	return resp, nil
}

func (s *GeminiService) ChatStream(ctx context.Context, messages []types.Message, handler types.StreamHandler) error {
	if len(messages) == 0 {
		return errors.New("no messages provided")
	}
	prompt := messages[len(messages)-1].Content
	iter := s.model.GenerateContentStream(ctx, genai.Text(prompt))

	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			if err := s.rotateAPIKey(); err != nil {
				return err
			}
			iter = s.model.GenerateContentStream(ctx, genai.Text(prompt))
			resp, err = iter.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("%w: %v", types.ErrProviderUnavailable, err)
			}
		}
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if text, ok := part.(genai.Text); ok {
					handler(string(text))
				}
			}
		}
	}
}

// RegisterFunction adds a tool the model may call during chat.
func (s *GeminiService) RegisterFunction(name, description string, parameters map[string]*genai.Schema, handler types.FunctionHandler) {
	functionDeclaration := &genai.FunctionDeclaration{
		Name:        name,
		Description: description,
		Parameters: &genai.Schema{
			Type:       genai.TypeObject,
			Properties: parameters,
			Required:   make([]string, 0, len(parameters)),
		},
	}
	for paramName := range parameters {
		functionDeclaration.Parameters.Required = append(
			functionDeclaration.Parameters.Required,
			paramName,
		)
	}

	s.model.Tools = append(s.model.Tools, &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{functionDeclaration},
	})
	s.functionsCall[name] = handler
}

// RegisterDocumentSearchTool mirrors the OpenAI backend's retrieval tool.
func (s *GeminiService) RegisterDocumentSearchTool(retriever *Retriever, answers *AnswerService, tenant string) {
	s.RegisterFunction(
		"search_documents",
		"Mencari informasi PKB, denda, tarif, dan lokasi layanan di dalam dokumen yang telah diunggah",
		map[string]*genai.Schema{
			"query": {
				Type:        genai.TypeString,
				Description: "Pertanyaan atau kata kunci untuk mencari di dokumen yang diunggah",
			},
		},
		func(ctx context.Context, args []byte) (any, error) {
			var req struct {
				Query string `json:"query"`
			}
			if err := json.Unmarshal(args, &req); err != nil {
				return nil, err
			}
			ranked, err := retriever.Retrieve(ctx, tenant, req.Query, 0, "")
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
