// Package host adapts the phaser to its surroundings: a parameter table
// with a narrow parameter-change interface, JSON parameter documents, WAV
// block streaming, an offline render loop and a parameter-file watcher.
//
// Nothing here runs on the audio path except Render, which only moves
// samples between the WAV adapters and a BlockProcessor.
package host
