package game

import "time"

const (
	DefaultCooldown       = 30 * time.Second
	DefaultSealedMaterial = "blue_stained_glass"
	EmptyCell             = "air"
	DefaultWorld          = "world"
)
