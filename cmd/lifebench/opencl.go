//go:build opencl

package main

import _ "multilife/internal/compute/opencl"
