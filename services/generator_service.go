package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/ouerghi0x/cv-maker-sub000/config"
)

// DocTypeCoverLetter is the non-credit-consuming LaTeX document type.
const DocTypeCoverLetter = "cover-letter"

// GenerateRequest carries one document generation job. Data is the raw
// form payload string; Prompt optionally overrides the per-type default.
type GenerateRequest struct {
	DocType string
	Data    string
	Prompt  string
}

// GeneratedDocument is a successful pipeline result.
type GeneratedDocument struct {
	PDF      []byte
	LaTeX    string
	Attempts int
}

// GeneratedEmail is the structured output of the job-application email
// generator.
type GeneratedEmail struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// CompileError is a LaTeX compilation failure; Log carries the compiler
// output fed back into the next generation attempt.
type CompileError struct {
	Log string
	Err error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("latex compilation failed: %v", e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// LatexGenerator produces LaTeX source from a prompt and input data.
type LatexGenerator interface {
	GenerateLatex(ctx context.Context, prompt, input string) (string, error)
	GenerateText(ctx context.Context, prompt, input string) (string, error)
}

// LatexCompiler turns LaTeX source into PDF bytes.
type LatexCompiler interface {
	Compile(ctx context.Context, latex string) ([]byte, error)
}

// GeneratorService is the document pipeline: LLM to LaTeX to PDF, with a
// bounded retry loop that feeds compiler output back into the prompt.
type GeneratorService interface {
	GenerateDocument(ctx context.Context, req GenerateRequest) (*GeneratedDocument, error)
	GenerateEmail(ctx context.Context, input string) (*GeneratedEmail, error)
}

type generatorService struct {
	generator   LatexGenerator
	compiler    LatexCompiler
	maxAttempts int
}

// NewGeneratorService creates a new instance of GeneratorService.
func NewGeneratorService(generator LatexGenerator, compiler LatexCompiler, maxAttempts int) GeneratorService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &generatorService{generator: generator, compiler: compiler, maxAttempts: maxAttempts}
}

// GenerateDocument runs the bounded attempt loop: each attempt generates
// LaTeX and compiles it; a compile failure appends the compiler log to the
// next attempt's prompt, and the loop gives up after maxAttempts.
func (s *generatorService) GenerateDocument(ctx context.Context, req GenerateRequest) (*GeneratedDocument, error) {
	if req.Data == "" {
		return nil, errors.New("input data is required")
	}

	prompt := req.Prompt
	if prompt == "" {
		switch req.DocType {
		case DocTypeCoverLetter:
			prompt = promptMakeCoverLetter
		default:
			prompt = promptMakeCV
		}
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		latex, err := s.generator.GenerateLatex(ctx, prompt, req.Data)
		if err != nil {
			return nil, fmt.Errorf("LLM generation failed on attempt %d: %w", attempt, err)
		}

		pdf, err := s.compiler.Compile(ctx, latex)
		if err == nil {
			log.Printf("INFO: [GeneratorService] Compiled %s document on attempt %d (%d bytes).", req.DocType, attempt, len(pdf))
			return &GeneratedDocument{PDF: pdf, LaTeX: latex, Attempts: attempt}, nil
		}

		lastErr = err
		var compileErr *CompileError
		if !errors.As(err, &compileErr) {
			return nil, fmt.Errorf("compilation failed on attempt %d: %w", attempt, err)
		}

		log.Printf("WARN: [GeneratorService] Attempt %d/%d failed to compile, retrying with compiler feedback: %v", attempt, s.maxAttempts, compileErr.Err)
		prompt = prompt + "\n\nThe previous LaTeX output failed to compile. Fix the issues reported below and regenerate the complete document:\n" + compileErr.Log
	}

	return nil, fmt.Errorf("document generation gave up after %d attempts: %w", s.maxAttempts, lastErr)
}

// GenerateEmail asks the LLM for a structured job-application email and
// parses the JSON it returns.
func (s *generatorService) GenerateEmail(ctx context.Context, input string) (*GeneratedEmail, error) {
	if input == "" {
		return nil, errors.New("input data is required")
	}

	raw, err := s.generator.GenerateText(ctx, promptJobApplicationEmail, input)
	if err != nil {
		return nil, fmt.Errorf("LLM email generation failed: %w", err)
	}
	raw = stripFences(raw)
	if raw == "" {
		return nil, errors.New("LLM returned an empty email response")
	}

	var email GeneratedEmail
	if err := json.Unmarshal([]byte(raw), &email); err != nil {
		log.Printf("ERROR: [GeneratorService] Failed to parse LLM email response as JSON. Raw response: %.200s", raw)
		return nil, fmt.Errorf("failed to parse LLM email response: %w", err)
	}
	if email.To == "" || email.Subject == "" || email.Body == "" {
		return nil, errors.New("LLM email response is missing expected fields")
	}
	return &email, nil
}

// stripFences removes markdown code fences the LLM tends to wrap its
// output in.
func stripFences(s string) string {
	for _, fence := range []string{"```latex", "```json", "```"} {
		s = strings.ReplaceAll(s, fence, "")
	}
	return strings.TrimSpace(s)
}

// --- OpenAI-compatible LatexGenerator ---

type openAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds a LatexGenerator backed by an OpenAI-compatible
// chat-completion endpoint.
func NewOpenAIGenerator(cfg config.LLMConfig) LatexGenerator {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &openAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.Model,
	}
}

func (g *openAIGenerator) complete(ctx context.Context, prompt, input string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt + "\n\n" + input},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func (g *openAIGenerator) GenerateLatex(ctx context.Context, prompt, input string) (string, error) {
	content, err := g.complete(ctx, prompt, input)
	if err != nil {
		return "", err
	}
	latex := stripFences(content)
	if latex == "" {
		return "", errors.New("LLM returned empty LaTeX output")
	}
	return latex, nil
}

func (g *openAIGenerator) GenerateText(ctx context.Context, prompt, input string) (string, error) {
	return g.complete(ctx, prompt, input)
}

// --- Tectonic LatexCompiler ---

type tectonicCompiler struct {
	command string
	workDir string
}

// NewTectonicCompiler builds a LatexCompiler that shells out to the
// tectonic binary. Each compilation gets its own temp directory, removed
// when the compile finishes either way.
func NewTectonicCompiler(cfg config.CompileConfig) LatexCompiler {
	workDir := cfg.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &tectonicCompiler{command: cfg.Command, workDir: workDir}
}

func (c *tectonicCompiler) Compile(ctx context.Context, latex string) ([]byte, error) {
	tempDir := filepath.Join(c.workDir, "temp_cv_"+uuid.NewString())
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			log.Printf("WARN: [TectonicCompiler] Failed to clean up temp directory %s: %v", tempDir, err)
		}
	}()

	texPath := filepath.Join(tempDir, "main.tex")
	if err := os.WriteFile(texPath, []byte(latex), 0644); err != nil {
		return nil, fmt.Errorf("failed to write LaTeX source: %w", err)
	}

	cmd := exec.CommandContext(ctx, c.command, "--outdir", tempDir, texPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, &CompileError{Log: string(output), Err: err}
	}

	pdfPath := filepath.Join(tempDir, "main.pdf")
	pdf, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, &CompileError{Log: string(output), Err: fmt.Errorf("compiled PDF not found: %w", err)}
	}
	return pdf, nil
}
