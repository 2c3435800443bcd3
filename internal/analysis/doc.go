// Package analysis provides checks and summaries of simulated traces.
//
//   - [PowerSpectrum] and [DominantFrequencies]: windowed FFT of a sampled trace
//   - [PeriodMismatch]: how far a trace is from repeating with a given lag
//   - [GradientCheck]: analytic current sensitivities against central differences
//
// # Gradient check
//
// For each selected parameter j the current is recomputed at p_j ± eps and
//
//	(I(p_j+eps) - I(p_j-eps)) / (2 eps)
//
// is compared with the analytic dI/dp_j over the whole trace.
package analysis
