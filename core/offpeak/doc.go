// Package offpeak resolves off-peak charging windows.
//
// A Schedule describes the fixed daily off-peak period of the tariff, which
// may wrap midnight. The Resolver combines that schedule with smart-charge
// dispatches granted by the provider and answers which merged window covers,
// or comes next after, a given instant.
package offpeak
