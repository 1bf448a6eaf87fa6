// Package kernels embeds the kernel programs of the simulation and the
// colorizer, one source per kernel language.
package kernels

import (
	_ "embed"
	"fmt"

	"multilife/internal/compute"
)

// Entry point names, identical in every language.
const (
	LifeStep     = "life_step"
	PipeProducer = "pipe_producer"
	PipeConsumer = "pipe_consumer"
	ColorizeGrid = "colorize_grid"
)

var (
	//go:embed life.go.txt
	lifeGo string
	//go:embed life.cl
	lifeCL string
	//go:embed colorize.go.txt
	colorizeGo string
	//go:embed colorize.cl
	colorizeCL string
)

// Life returns the automaton program, including the optional population
// reduction kernels, for lang.
func Life(lang compute.Language) (string, error) {
	switch lang {
	case compute.LanguageGo:
		return lifeGo, nil
	case compute.LanguageOpenCLC:
		return lifeCL, nil
	}
	return "", fmt.Errorf("kernels: no life program for language %s", lang)
}

// Colorize returns the species-to-RGBA program for lang.
func Colorize(lang compute.Language) (string, error) {
	switch lang {
	case compute.LanguageGo:
		return colorizeGo, nil
	case compute.LanguageOpenCLC:
		return colorizeCL, nil
	}
	return "", fmt.Errorf("kernels: no colorize program for language %s", lang)
}
