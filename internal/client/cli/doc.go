// Package cli implements the pontos uploader command.
//
// Usage:
//
//	client -song <ponto id> -interpreter <name> -file <path> [-author <name>] [-consent]
//	       [-mime <type>] [-duration <ms>] [-token <jwt>]
//
// The bearer token comes from -token, then the PONTOS_TOKEN environment
// variable, then a no-echo terminal prompt. Backend settings are read by
// the config package from the same command line.
package cli
