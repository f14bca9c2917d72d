package version

import (
	"fmt"
	"log"
	"runtime"
	"strings"

	"github.com/thushan/qlite/theme"
)

var (
	Name        = "qlite"
	ProductName = "Q-Lite"
	Authors     = "Thushan Fernando"
	Description = "Tiny LLM gateway for small hosts"
	Version     = "v0.1.0"
	Commit      = "none"
	Date        = "nowish"
	User        = "local"
)

const (
	GithubHomeText  = "github.com/thushan/qlite"
	GithubHomeUri   = "https://github.com/thushan/qlite"
	GithubLatestUri = "https://github.com/thushan/qlite/releases/latest"
)

// StatusMessage is what GET / reports back, eg. "Q-Lite v0.1.0"
func StatusMessage() string {
	return ProductName + " " + Version
}

func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	githubUri := theme.Hyperlink(GithubHomeUri, GithubHomeText)
	latestUri := theme.Hyperlink(GithubLatestUri, Version)
	padBuffer := fmt.Sprintf("%*s", max(1, 24-len(GithubHomeText)-len(Version)), "")

	var b strings.Builder

	b.WriteString(theme.ColourSplash(`
╔──────────────────────────────────────────────╗
│   ██████╗       ██╗     ██╗████████╗███████╗ │
│  ██╔═══██╗      ██║     ██║╚══██╔══╝██╔════╝ │
│  ██║   ██║█████╗██║     ██║   ██║   █████╗   │
│  ██║▄▄ ██║╚════╝██║     ██║   ██║   ██╔══╝   │
│  ╚██████╔╝      ███████╗██║   ██║   ███████╗ │
│   ╚══▀▀═╝       ╚══════╝╚═╝   ╚═╝   ╚══════╝ │` + "\n"))

	b.WriteString(theme.ColourSplash("│ "))
	b.WriteString(theme.StyleUrl(githubUri))
	b.WriteString(padBuffer)
	b.WriteString(theme.ColourVersion(latestUri))
	b.WriteString(theme.ColourSplash(" │\n"))
	b.WriteString(theme.ColourSplash("╚──────────────────────────────────────────────╝"))

	if extendedInfo {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(" Commit: %s\n", Commit))
		b.WriteString(fmt.Sprintf("  Built: %s\n", Date))
		b.WriteString(fmt.Sprintf("  Using: %s\n", User))
		b.WriteString(fmt.Sprintf("     Go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH))
	}

	vlog.Println(b.String())
}
