package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"cyberguard/internal/config"
	"cyberguard/internal/domain/models"
	"cyberguard/internal/domain/services"
	"cyberguard/pkg/logger"
)

// ANSI colors for terminal output
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[91m"
	colorYellow = "\033[93m"
	colorGreen  = "\033[92m"
	colorCyan   = "\033[96m"
	colorBold   = "\033[1m"
)

func main() {
	modelFlag := flag.String("model", "", "override the chat model")
	maxTokensFlag := flag.Int("max-tokens", 0, "override max completion tokens")
	temperatureFlag := flag.Float64("temperature", 0, "override sampling temperature")
	analyzeOnly := flag.Bool("analyze-only", false, "analyze messages without calling the chat model")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Keep interactive output clean
	log := logger.New(logger.Config{Level: "error", Format: "console"})

	var reputation services.ReputationClient
	vtClient := services.NewVirusTotalClient(cfg.VirusTotal, log)
	if vtClient.Enabled() {
		reputation = vtClient
	}

	evaluator := services.NewThreatEvaluator(reputation, log)
	llm := services.NewOpenRouterClient(cfg.OpenRouter, log)
	bot := services.NewChatbot(uuid.New().String(), llm, evaluator, log)

	opts := services.CompletionOptions{
		Model:       *modelFlag,
		MaxTokens:   *maxTokensFlag,
		Temperature: *temperatureFlag,
	}

	fmt.Printf("%s%sCyberGuard AI%s - cybersecurity assistant\n", colorBold, colorCyan, colorReset)
	fmt.Println("Type a message to chat, 'clear' to reset the conversation, 'exit' to quit.")
	if !llm.Enabled() && !*analyzeOnly {
		fmt.Printf("%sNo OpenRouter API key configured; falling back to analyze-only mode.%s\n", colorYellow, colorReset)
		*analyzeOnly = true
	}
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

	for {
		fmt.Printf("%syou>%s ", colorBold, colorReset)
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())

		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			fmt.Println("Stay safe out there.")
			return
		case "clear":
			bot.ClearHistory()
			fmt.Println("Conversation cleared.")
			continue
		}

		ctx := context.Background()

		if *analyzeOnly {
			verdict := bot.Analyze(ctx, input)
			printVerdict(verdict)
			continue
		}

		turn, err := bot.Chat(ctx, input, opts)
		if err != nil {
			fmt.Printf("%serror:%s %v\n", colorRed, colorReset, err)
			continue
		}

		if turn.Verdict != nil && turn.Verdict.RiskLevel != models.RiskLevelNone {
			printVerdict(turn.Verdict)
		}

		fmt.Printf("%scyberguard>%s %s\n\n", colorCyan, colorReset, turn.Response)
	}
}

// printVerdict renders the threat analysis with a risk-colored banner
func printVerdict(v *models.ThreatVerdict) {
	if v == nil {
		return
	}

	color := colorGreen
	switch v.RiskLevel {
	case models.RiskLevelHigh:
		color = colorRed
	case models.RiskLevelMedium:
		color = colorYellow
	case models.RiskLevelLow:
		color = colorYellow
	}

	fmt.Printf("%s%s[risk: %s | score: %d]%s\n", colorBold, color, v.RiskLevel, v.RiskScore, colorReset)

	if len(v.ThreatCategories) > 0 {
		fmt.Printf("  categories: %s\n", strings.Join(v.ThreatCategories, ", "))
	}
	for _, ind := range v.Indicators {
		fmt.Printf("  %s-%s %s\n", color, colorReset, ind)
	}
	for _, rec := range services.SecurityRecommendations(v) {
		fmt.Printf("  %s*%s %s\n", colorGreen, colorReset, rec)
	}
	fmt.Println()
}
