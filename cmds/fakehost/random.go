package main

import (
	"math/rand"
	"strings"
	"time"

	"github.com/goombaio/namegenerator"

	"github.com/mandelsoft/webrequest/pkg/pattern"
)

var generator = namegenerator.NewNameGenerator(time.Now().UnixNano())

func Random[E any](list []E) E {
	return list[rand.Intn(len(list))]
}

var tlds = []string{"com", "org", "net", "io"}

// SampleURL provides a URL matching the given pattern. Wildcards
// are replaced by generated names. It returns an empty string
// for patterns without a host.
func SampleURL(p string) string {
	name := generator.Generate()
	if p == pattern.AllURLs {
		p = "*://*/*"
	}
	scheme, rest, ok := strings.Cut(p, "://")
	if !ok {
		return ""
	}
	if scheme == "*" {
		scheme = Random([]string{"http", "https"})
	}
	host, path, _ := strings.Cut(rest, "/")
	switch {
	case host == "":
		return ""
	case host == "*":
		host = name + "." + Random(tlds)
	case strings.HasPrefix(host, "*."):
		host = name + host[1:]
	}
	return scheme + "://" + host + "/" + strings.ReplaceAll(path, "*", name)
}
