package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/JoeySoprano420/casec"
)

const defaultWritePermission = 0644 // -rw-r--r--

// tagListFlag collects repeated `--tag key=value` flags into a map,
// mirroring the teacher's pattern of composing several flag.String/
// flag.Bool fields into one args struct, generalized to flag.Var for a
// repeatable option.
type tagListFlag struct {
	values map[string]string
}

func (t *tagListFlag) String() string {
	if t == nil || len(t.values) == 0 {
		return ""
	}
	var parts []string
	for k, v := range t.values {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (t *tagListFlag) Set(s string) error {
	if t.values == nil {
		t.values = map[string]string{}
	}
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		t.values[key] = "1"
		return nil
	}
	t.values[key] = value
	return nil
}

func main() {
	var (
		exePath = flag.String("o", casec.DefaultConfig().ExePath, "Output executable path, passed to the external compiler")
		std     = flag.String("std", "c++14", "Target C++ standard passed to the external compiler")
		opt     = flag.String("opt", "O2", "Optimization level recorded in the build metadata banner")
		cc      = flag.String("cc", "g++", "External compiler name, kept in the compile config (not written to the metadata banner)")
		tags    tagListFlag
	)
	flag.Var(&tags, "tag", "Repeatable key=value build tag, e.g. --tag diagram=1")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatal("usage: casec [flags] <source.case>")
	}
	sourcePath := flag.Arg(0)

	src, err := os.ReadFile(sourcePath)
	if err != nil {
		log.Fatalf("can't read source file: %s", err.Error())
	}

	cfg := casec.DefaultConfig()
	cfg.SourcePath = sourcePath
	cfg.ExePath = *exePath
	cfg.Std = *std
	cfg.Opt = *opt
	cfg.CC = *cc
	cfg.Tags = tags.values
	if cfg.Tags == nil {
		cfg.Tags = map[string]string{}
	}
	cfg.NoCompile = os.Getenv("CASEC_NO_COMPILE") == "1"

	reg := casec.NewRegistry()

	result, err := casec.Compile(string(src), cfg, reg)
	if err != nil {
		log.Fatalf("compile failed: %s", err.Error())
	}

	for _, d := range result.Diagnostics {
		log.Printf("%s", d.String())
	}

	if err := os.WriteFile(casec.CppOutputPath, []byte(result.CppSource), defaultWritePermission); err != nil {
		log.Fatalf("can't write output: %s", err.Error())
	}

	if cfg.TagEnabled("diagram") && result.Diagram != "" {
		diagramPath := strings.TrimSuffix(casec.CppOutputPath, ".cpp") + ".diagram.txt"
		if err := os.WriteFile(diagramPath, []byte(result.Diagram), defaultWritePermission); err != nil {
			log.Fatalf("can't write diagram: %s", err.Error())
		}
	}

	if len(result.ReplayLog) > 0 {
		replayBody := strings.Join(result.ReplayLog, "\n") + "\n"
		if err := os.WriteFile("replay.txt", []byte(replayBody), defaultWritePermission); err != nil {
			log.Fatalf("can't write replay.txt: %s", err.Error())
		}
	}

	fmt.Printf("wrote %s (executable target: %s)\n", casec.CppOutputPath, cfg.ExePath)
}
