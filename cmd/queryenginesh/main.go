// Command queryenginesh is an interactive REPL for driving a cross-partition
// query pipeline by hand against an in-process mock gateway: issue .ranges
// and .seed to set up a fake container, .query to open a pipeline, and
// .run/.fetch/.step to watch it page through the mock gateway's rows.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"

	"github.com/cosmosquery/crosspartition/cmd/queryenginesh/parser"
	"github.com/cosmosquery/crosspartition/cmd/queryenginesh/shell"
)

const prompt = "queryenginesh> "

func main() {
	sh, err := shell.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize shell: %v\n", err)
		os.Exit(1)
	}
	defer sh.Close()

	fmt.Println("queryenginesh — type .help for commands, .exit to quit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println()
				return
			}
			fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
			return
		}

		if input == "" {
			continue
		}
		line.AppendHistory(input)

		cmd, err := parser.Parse(input)
		if err != nil {
			fmt.Println("ERROR:", err)
			continue
		}

		result := sh.Execute(cmd)
		if result.IsExit() {
			return
		}
		result.Print(os.Stdout)
	}
}
