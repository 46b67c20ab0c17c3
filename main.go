/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "voicemorph/cmd"

func main() {
	cmd.Execute()
}
