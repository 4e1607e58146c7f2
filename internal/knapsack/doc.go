// Package knapsack solves the 0/1 knapsack problem: given items with a value
// and a weight, pick the subset with the largest total value whose total
// weight stays within a capacity. Solve is pure and safe for concurrent use.
package knapsack
