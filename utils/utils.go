// Package utils provides helpers shared by the vp commands.
package utils

import (
	"os"
	"regexp"

	"github.com/mitchellh/go-homedir"
)

// ExpandPath expands tilde and all environment variables from the given path.
func ExpandPath(path string) string {
	s, err := homedir.Expand(path)
	if err == nil {
		return os.ExpandEnv(s)
	}
	return path
}

var yamlPattern = regexp.MustCompile(`(?m)^---\r?\n(\s*\r?\n)?`)

// RemoveFrontmatter removes a leading YAML front matter block from content.
func RemoveFrontmatter(content []byte) []byte {
	if bounds := detectFrontmatter(content); bounds[0] == 0 {
		return content[bounds[1]:]
	}
	return content
}

func detectFrontmatter(c []byte) []int {
	if matches := yamlPattern.FindAllIndex(c, 2); len(matches) > 1 {
		return []int{matches[0][0], matches[1][1]}
	}
	return []int{-1, -1}
}
