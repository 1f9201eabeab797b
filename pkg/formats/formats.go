// Package formats reads and writes Unreal PSK skeletal meshes and PSA
// animations on top of the psx section container.
package formats
