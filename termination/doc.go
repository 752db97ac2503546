// Package termination decides after every round whether a discussion should
// stop and why.
//
// The default HeuristicDetector applies, in order: the round cap, explicit
// completion markers, group consensus and single-voice repetition. The last
// two use a lexical similarity measure over normalized text (token-set
// Jaccard by default, word-shingle cosine on request). Any other strategy
// can be plugged in through the Detector interface.
package termination
