package main

import "github.com/MuneebMM/Olist-Logistics-Engine/pkg/cli"

func main() {
	cli.Execute()
}
