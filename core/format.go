package core

// This file centralizes constants related to the text storage file format.

// --- Magic Numbers ---
const (
	// TextStoreMagicNumber identifies a text storage container file.
	TextStoreMagicNumber uint32 = 0x53545854 // "TXTS"
)

// --- File Names & Suffixes ---
const (
	// TextStoreFileSuffix is the conventional suffix for container files.
	TextStoreFileSuffix = ".txts"
	// TempFileSuffix marks a container that has not been finished yet.
	TempFileSuffix = ".tmp"
)

// --- Protocol & Format Versions ---
const (
	// FormatVersion is the current version of the container format.
	FormatVersion uint8 = 1
)

// --- Section layout ---
const (
	// SectionHeaderSize is the fixed little-endian field at the start of every
	// section that holds the offset of its index region.
	SectionHeaderSize = 8
)
