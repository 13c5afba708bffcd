package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shortsfactory/tui"
	"shortsfactory/types"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("url", "http://localhost:8080", "Shorts factory API URL")
	jobID := flag.String("id", "", "Job id to watch")
	topic := flag.String("topic", "", "Submit a new job for this topic and watch it")
	duration := flag.Int("duration", 30, "Target duration in seconds for -topic")
	style := flag.String("style", "normal", "Narration style for -topic: normal, dark or money")
	publish := flag.Bool("publish", false, "Publish the video when it is done")
	flag.Parse()

	id := *jobID
	if *topic != "" {
		st, err := tui.NewJobsClient(*serverURL).Submit(types.Job{
			Topic:        *topic,
			DurationHint: *duration,
			Style:        types.Style(*style),
			Publish:      *publish,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error submitting job: %v\n", err)
			os.Exit(1)
		}
		id = st.ID
	}
	if id == "" {
		fmt.Fprintln(os.Stderr, "Either -id or -topic is required")
		flag.Usage()
		os.Exit(2)
	}

	program := tea.NewProgram(tui.NewModel(*serverURL, id))

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
