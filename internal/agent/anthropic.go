package agent

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"

	"github.com/crewkit/crewkit/pkg/models"
)

// defaultMaxToolIterations bounds the tool-use loop per invocation.
const defaultMaxToolIterations = 15

// AnthropicConfig contains settings for the Anthropic-backed executor.
type AnthropicConfig struct {
	// Model is the Claude model to use. Defaults to Sonnet.
	Model anthropic.Model
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseAWSBedrock routes calls through AWS Bedrock instead of the API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
	// MaxTokens is the per-call output token limit. Defaults to 8192.
	MaxTokens int64
	// MaxToolIterations bounds the tool-use loop. Defaults to 15.
	MaxToolIterations int
}

// AnthropicExecutor invokes the Anthropic messages API, running a tool-use
// loop until the model stops calling tools.
type AnthropicExecutor struct {
	inner         anthropic.Client
	model         anthropic.Model
	maxTokens     int64
	maxIterations int
}

// NewAnthropicExecutor creates an executor for the given config.
func NewAnthropicExecutor(cfg AnthropicConfig) (*AnthropicExecutor, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	model := cfg.Model
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	if cfg.UseAWSBedrock {
		model = translateModelForBedrock(model)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	maxIterations := cfg.MaxToolIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxToolIterations
	}

	return &AnthropicExecutor{
		inner:         anthropic.NewClient(opts...),
		model:         model,
		maxTokens:     maxTokens,
		maxIterations: maxIterations,
	}, nil
}

// Model returns the configured model name.
func (e *AnthropicExecutor) Model() anthropic.Model {
	return e.model
}

// Invoke runs the messages call, executing requested tools and feeding
// their results back until the model ends its turn.
func (e *AnthropicExecutor) Invoke(ctx context.Context, req Request) (Response, error) {
	var out Response

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
	}
	tools := toolDefinitions(req.Tools)
	toolsByName := make(map[string]func(context.Context, string) (string, error), len(req.Tools))
	for _, t := range req.Tools {
		toolsByName[t.Name] = t.Run
	}

	for iteration := 0; iteration < e.maxIterations; iteration++ {
		// The agent acquired the permit for the first call; follow-up
		// calls inside the loop need their own.
		if iteration > 0 && req.Gate != nil {
			if err := req.Gate.Acquire(ctx); err != nil {
				return out, fmt.Errorf("acquire rate permit: %w", err)
			}
		}

		resp, err := e.inner.Messages.New(ctx, anthropic.MessageNewParams{
			Model:     e.model,
			MaxTokens: e.maxTokens,
			System: []anthropic.TextBlockParam{
				{Text: req.System},
			},
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return out, fmt.Errorf("API call failed: %w", err)
		}

		out.PromptTokens += resp.Usage.InputTokens
		out.CompletionTokens += resp.Usage.OutputTokens

		var assistantBlocks []anthropic.ContentBlockParamUnion
		var toolResultBlocks []anthropic.ContentBlockParamUnion
		var textOutput string

		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				textOutput += variant.Text
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(variant.Text))

			case anthropic.ToolUseBlock:
				assistantBlocks = append(assistantBlocks,
					anthropic.NewToolUseBlock(variant.ID, variant.Input, variant.Name))

				content, isError := e.runTool(ctx, toolsByName, variant.Name, string(variant.Input))
				toolResultBlocks = append(toolResultBlocks,
					anthropic.NewToolResultBlock(variant.ID, content, isError))
			}
		}

		if resp.StopReason == anthropic.StopReasonEndTurn {
			out.Text = textOutput
			return out, nil
		}

		messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))
		if len(toolResultBlocks) > 0 {
			messages = append(messages, anthropic.NewUserMessage(toolResultBlocks...))
		}
	}

	return out, fmt.Errorf("max tool iterations (%d) reached", e.maxIterations)
}

// runTool executes a requested tool and returns its content and error flag.
func (e *AnthropicExecutor) runTool(ctx context.Context, byName map[string]func(context.Context, string) (string, error), name, input string) (string, bool) {
	run, ok := byName[name]
	if !ok || run == nil {
		return fmt.Sprintf("tool %q is not available", name), true
	}
	content, err := run(ctx, input)
	if err != nil {
		return err.Error(), true
	}
	return content, false
}

// toolDefinitions converts the crew tool set to API tool schemas.
func toolDefinitions(tools []models.Tool) []anthropic.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}

	defs := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		properties := make(map[string]interface{}, len(t.Schema))
		for name, prop := range t.Schema {
			properties[name] = map[string]interface{}{
				"type":        prop.Type,
				"description": prop.Description,
			}
		}
		if len(properties) == 0 {
			properties["input"] = map[string]interface{}{
				"type":        "string",
				"description": "Input for the tool",
			}
		}

		defs = append(defs, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: properties,
					Required:   t.Required,
				},
			},
		})
	}
	return defs
}

// translateModelForBedrock converts standard Anthropic model names to
// Bedrock cross-region inference profile format.
func translateModelForBedrock(model anthropic.Model) anthropic.Model {
	bedrockModels := map[anthropic.Model]string{
		anthropic.ModelClaudeSonnet4_20250514:   "us.anthropic.claude-sonnet-4-20250514-v1:0",
		anthropic.ModelClaude3_7Sonnet20250219:  "us.anthropic.claude-3-7-sonnet-20250219-v1:0",
		anthropic.ModelClaude3_5Haiku20241022:   "us.anthropic.claude-3-5-haiku-20241022-v1:0",
	}

	if bedrockModel, ok := bedrockModels[model]; ok {
		return anthropic.Model(bedrockModel)
	}
	if strings.HasPrefix(string(model), "us.anthropic") {
		return model
	}
	return model
}
