package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/superconnector-backend/internal/app"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

// reindex pushes stored profile embeddings into the configured vector index,
// or forgets specific profiles with -forget.
func main() {
	var forget idList
	var timeout time.Duration
	flag.Var(&forget, "forget", "profile_id to remove from the index (repeatable)")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "overall deadline")
	flag.Parse()

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if len(forget) > 0 {
		removed := 0
		for _, raw := range forget {
			id, err := uuid.Parse(raw)
			if err != nil || id == uuid.Nil {
				fmt.Printf("skip invalid profile_id %q\n", raw)
				continue
			}
			if err := application.Services.Matches.Forget(ctx, id); err != nil {
				fmt.Printf("forget %s: %v\n", id, err)
				continue
			}
			removed++
		}
		fmt.Printf("forgot %d profile(s)\n", removed)
		return
	}

	n, err := application.Services.Matches.Reindex(ctx)
	if err != nil {
		fmt.Printf("reindex: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("reindexed %d profile(s) into %s\n", n, application.Clients.VectorProvider)
}
