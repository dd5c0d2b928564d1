package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"skillsync/internal/app"
	"skillsync/internal/config"
)

func main() {
	socs := flag.String("soc", "", "comma-separated SOC codes to enrich")
	force := flag.Bool("force", false, "refresh even when caches are still valid")
	clean := flag.Bool("clean-expired", false, "delete expired cache rows before enriching")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall run timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	c, err := app.NewContainer(cfg)
	if err != nil {
		log.Fatalf("failed to init container: %v", err)
	}
	defer func() {
		_ = c.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if *clean {
		removed, err := c.Enrichment.CleanExpired(ctx)
		if err != nil {
			log.Fatalf("clean expired failed: %v", err)
		}
		log.Printf("enrich=clean removed=%d", removed)
	}

	codes := splitCodes(*socs)
	if len(codes) == 0 {
		if *clean {
			return
		}
		log.Fatalf("provide -soc with at least one SOC code")
	}

	results := c.Enrichment.EnrichBatch(ctx, codes, *force)

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
		if len(r.Errors) > 0 {
			log.Printf("enrich=result soc=%s success=%t errors=%s", r.SOCCode, r.Success, strings.Join(r.Errors, "; "))
			continue
		}
		log.Printf("enrich=result soc=%s success=%t bls=%t cos=%t", r.SOCCode, r.Success, r.DataUpdated.BLSWage, r.DataUpdated.COSOccupation)
	}
	log.Printf("enrich=done total=%d succeeded=%d failed=%d", len(results), succeeded, len(results)-succeeded)
}

func splitCodes(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
