package aggregate

import (
	"regexp"
	"sort"
	"strings"

	"github.com/siftdev/sift/internal/model"
)

// estimatedCharsPerCodeBlock (K) is the rough per-block character estimate
// used for CodeToTextRatio when an exact sum isn't wanted, per SPEC_FULL's
// Open Question resolution #2. CodeChars (the exact sum) is tracked
// alongside it for callers that want precision instead.
const estimatedCharsPerCodeBlock = 80

// frameworkPattern is one entry in the fixed, case-insensitive framework
// detection catalog (spec §4.5.3): "web UI kits, test runners, build
// tools, a container runtime, and a cluster orchestrator" at minimum.
type frameworkPattern struct {
	name string
	re   *regexp.Regexp
}

var frameworkCatalog = []frameworkPattern{
	{"react", regexp.MustCompile(`(?i)\breact\b`)},
	{"vue", regexp.MustCompile(`(?i)\bvue(?:\.js)?\b`)},
	{"svelte", regexp.MustCompile(`(?i)\bsvelte\b`)},
	{"angular", regexp.MustCompile(`(?i)\bangular\b`)},
	{"jest", regexp.MustCompile(`(?i)\bjest\b`)},
	{"pytest", regexp.MustCompile(`(?i)\bpytest\b`)},
	{"vitest", regexp.MustCompile(`(?i)\bvitest\b`)},
	{"go test", regexp.MustCompile(`(?i)\bgo test\b`)},
	{"webpack", regexp.MustCompile(`(?i)\bwebpack\b`)},
	{"vite", regexp.MustCompile(`(?i)\bvite\b`)},
	{"esbuild", regexp.MustCompile(`(?i)\besbuild\b`)},
	{"docker", regexp.MustCompile(`(?i)\bdocker(?:file|-compose)?\b`)},
	{"kubernetes", regexp.MustCompile(`(?i)\bkubernetes\b|\bk8s\b|\bkubectl\b`)},
}

// editedPathPattern matches path-like tokens in free text: at least one
// "/"-separated segment ending in a file extension, e.g. "internal/foo.go"
// or "./src/app.tsx".
var editedPathPattern = regexp.MustCompile(`(?:[\w.\-]+/)+[\w.\-]+\.[A-Za-z0-9]{1,8}\b`)

// Content is the output of AggregateContent (spec §4.5.3).
type Content struct {
	TotalCodeBlocks int            `json:"total_code_blocks"`
	Languages       map[string]int `json:"languages"`
	Frameworks      map[string]int `json:"frameworks"`
	AvgMessageLen   struct {
		User      float64 `json:"user"`
		Assistant float64 `json:"assistant"`
	} `json:"avg_message_length"`
	CodeToTextRatio float64     `json:"code_to_text_ratio"`
	CodeChars       int         `json:"code_chars"` // exact sum, tracked alongside the K-based estimate
	MostEditedFiles []FileCount `json:"most_edited_files"` // top 10
}

// FileCount is one entry in MostEditedFiles.
type FileCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// AggregateContent computes code-block/language/framework counts, average
// message length by role, the code-to-text ratio, and the most frequently
// referenced file paths across conversations.
func AggregateContent(conversations []ConversationMessages, scope Scope) Content {
	c := Content{
		Languages:  make(map[string]int),
		Frameworks: make(map[string]int),
	}

	var userChars, userMsgs, assistantChars, assistantMsgs int
	var totalTextChars int
	fileCounts := make(map[string]int)

	for _, cm := range conversations {
		for _, m := range filterMessages(cm.Messages, scope) {
			seenFiles := make(map[string]bool)
			msgLen := 0

			for _, b := range m.Content {
				switch b.Kind {
				case model.BlockText:
					msgLen += len(b.Text)
					totalTextChars += len(b.Text)
					for _, match := range editedPathPattern.FindAllString(b.Text, -1) {
						seenFiles[match] = true
					}
					for _, fp := range frameworkCatalog {
						if n := len(fp.re.FindAllString(b.Text, -1)); n > 0 {
							c.Frameworks[fp.name] += n
						}
					}
				case model.BlockCodeBlock:
					c.TotalCodeBlocks++
					c.CodeChars += len(b.Body)
					lang := strings.ToLower(b.Language)
					if lang == "" {
						lang = "unknown"
					}
					c.Languages[lang]++
				case model.BlockToolResult:
					msgLen += len(b.ToolOutput)
				}
			}

			for f := range seenFiles {
				fileCounts[f]++
			}

			switch m.Role {
			case model.RoleUser:
				userChars += msgLen
				userMsgs++
			case model.RoleAssistant:
				assistantChars += msgLen
				assistantMsgs++
			}
		}
	}

	if userMsgs > 0 {
		c.AvgMessageLen.User = float64(userChars) / float64(userMsgs)
	}
	if assistantMsgs > 0 {
		c.AvgMessageLen.Assistant = float64(assistantChars) / float64(assistantMsgs)
	}

	estimatedCodeChars := c.TotalCodeBlocks * estimatedCharsPerCodeBlock
	totalChars := totalTextChars + estimatedCodeChars
	if totalChars > 0 {
		c.CodeToTextRatio = float64(estimatedCodeChars) / float64(totalChars)
	}

	for path, count := range fileCounts {
		c.MostEditedFiles = append(c.MostEditedFiles, FileCount{Path: path, Count: count})
	}
	sort.Slice(c.MostEditedFiles, func(i, j int) bool {
		if c.MostEditedFiles[i].Count != c.MostEditedFiles[j].Count {
			return c.MostEditedFiles[i].Count > c.MostEditedFiles[j].Count
		}
		return c.MostEditedFiles[i].Path < c.MostEditedFiles[j].Path
	})
	if len(c.MostEditedFiles) > 10 {
		c.MostEditedFiles = c.MostEditedFiles[:10]
	}

	return c
}
