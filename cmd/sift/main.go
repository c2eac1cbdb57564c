// Command sift searches and analyzes local AI-conversation transcripts.
package main

import "github.com/siftdev/sift/cmd/sift/cli"

func main() {
	cli.Run()
}
