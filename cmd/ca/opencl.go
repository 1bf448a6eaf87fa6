//go:build ebiten && opencl

package main

import _ "multilife/internal/compute/opencl"
