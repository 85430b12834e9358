// island.go

package models

import "time"

const (
	// DefaultIslandRadius 岛屿默认半径
	DefaultIslandRadius = 50.0
	// DefaultIslandType 岛屿默认类型
	DefaultIslandType = "default"
)

// Island 岛屿，创建后不可变
type Island struct {
	ID        string    `json:"id"`
	Position  Vector3   `json:"position"`
	Radius    float64   `json:"radius"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}
