// Package internal holds iterator helpers shared by the simulator packages.
package internal

import (
	"iter"
)

// IterSeqConcat yields every value of each sequence in turn.
func IterSeqConcat[T any](seqs ...iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, seq := range seqs {
			for val := range seq {
				if !yield(val) {
					return
				}
			}
		}
	}
}

// IterSeq2Concat yields every pair of each sequence in turn.
// Used to merge the Defines() of several packages.
func IterSeq2Concat[K any, V any](seqs ...iter.Seq2[K, V]) iter.Seq2[K, V] {
	return func(yield func(K, V) bool) {
		for _, seq := range seqs {
			for key, val := range seq {
				if !yield(key, val) {
					return
				}
			}
		}
	}
}

// IterSeq2Map flattens each pair of a sequence into a single value.
func IterSeq2Map[K any, V any, T any](seq iter.Seq2[K, V], fn func(K, V) T) iter.Seq[T] {
	return func(yield func(T) bool) {
		for key, val := range seq {
			if !yield(fn(key, val)) {
				return
			}
		}
	}
}
