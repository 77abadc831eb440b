package main

import "github.com/kwoodhouse93/strava-heatmap/cmd"

func main() {
	cmd.Execute()
}
