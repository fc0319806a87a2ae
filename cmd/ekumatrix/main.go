package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/IPA-CyberLab/ekumatrix/cmd/ekumatrix/app"
)

var NewApp = app.New

func main() {
	app := NewApp()
	if err := app.Run(os.Args); err != nil {
		zap.S().Fatal(err)
	}
}
