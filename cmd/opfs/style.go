package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	dirStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#5FAFFF"))

	kindStyle = lipgloss.NewStyle().
			Width(10).
			Foreground(lipgloss.Color("#999999"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))
)

var sizeUnits = []string{"B", "KB", "MB", "GB", "TB"}

func byteSize(n int64) string {
	f := float64(n)
	i := 0
	for f >= 1024 && i < len(sizeUnits)-1 {
		f /= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%d %s", n, sizeUnits[0])
	}
	return fmt.Sprintf("%.2f %s", f, sizeUnits[i])
}

func printEntry(w io.Writer, isDir bool, name string) {
	if isDir {
		fmt.Fprintln(w, kindStyle.Render("dir")+dirStyle.Render(name+"/"))
		return
	}
	fmt.Fprintln(w, kindStyle.Render("file")+name)
}
