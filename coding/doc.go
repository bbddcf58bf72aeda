// Package coding implements the block codec used by text storage sections:
// a Burrows-Wheeler transform, a move-to-front pass and a canonical Huffman
// coder whose table is stored as per-symbol code lengths.
//
// Encoded block layout:
//
//	VarUint n          plaintext length
//	VarUint bwtStart   rank of the original rotation
//	Huffman table      VarUint count, then count x (symbol byte, length byte)
//	Huffman bitstream  MSB-first, zero padded to a byte boundary
package coding
