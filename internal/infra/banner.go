package infra

import (
	"fmt"
)

// ANSI color codes
const (
	ColorReset  = "\033[0m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner with the listen address and
// a warning when the venue runs without risk limits.
func PrintBanner(cfg *Config) {
	color := ColorGreen
	riskDesc := "LIMITS ACTIVE"
	if cfg.Risk.IsUnlimited() {
		color = ColorYellow
		riskDesc = "UNLIMITED (no risk checks)"
	}

	feedDesc := "disabled"
	if len(cfg.Feed.Brokers) > 0 {
		feedDesc = cfg.Feed.Topic
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   %-53s #%s\n", color, cfg.App.Name, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   VERSION: %-43s #%s\n", color, cfg.App.Version, ColorReset)
	fmt.Printf("%s#   LISTEN:  %-43s #%s\n", color, cfg.Server.Addr, ColorReset)
	fmt.Printf("%s#   DB:      %-43s #%s\n", color, cfg.Database.Path, ColorReset)
	fmt.Printf("%s#   FEED:    %-43s #%s\n", color, feedDesc, ColorReset)
	fmt.Printf("%s#   RISK:    %-43s #%s\n", color, riskDesc, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}
