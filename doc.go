// Package distillgo implements policy distillation for value-based
// reinforcement learning agents: a teacher agent is trained while dumping the
// raw states it visits, a frozen teacher then fills a disk-backed buffer of
// (state, Q-values) samples, and a student network is trained to match the
// teacher's softened Q-value distribution.
//
// The pipeline runs in four exclusive modes:
//
//   - teacher: train the base agent and dump every training-time state
//   - test: roll out a frozen teacher and collect the distillation buffer
//   - student: train the student from a collected buffer with a KL loss
//   - add_expert_q: relabel old raw state dumps with a newer teacher's Q-values
//
// See cmd/distill for the command-line entry point and pkg/distill for the
// mode runners.
package distillgo
