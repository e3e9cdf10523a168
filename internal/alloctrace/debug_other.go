//go:build !unix

package alloctrace

func osThreadID() int { return -1 }
