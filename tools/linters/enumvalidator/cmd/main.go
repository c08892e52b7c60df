package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/SeunOnTech/sol-stake-backend/tools/linters/enumvalidator"
)

func main() {
	singlechecker.Main(enumvalidator.Analyzer)
}
