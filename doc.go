// Package sentifolio simulates a personal portfolio driven by market
// sentiment. It is local-first and single user: nothing is ever sent to an
// exchange.
//
// The core functionalities include:
//   - Ledger: cash, open positions with their average cost basis, and the
//     append-only history of executed trades.
//   - Risk engine: an exponential moving average of sentiment scores mapped
//     to a risk level, the fraction of cash allowed on a bullish signal.
//   - Order drafting: buy, sell or hold proposals sized from the sentiment
//     magnitude, the risk level and the available cash.
//   - Price providers: a deterministic mock and a live HTTP quote provider.
//   - Persistence: account, holdings and activity log kept in plain JSON and
//     CSV files.
//
// A Portfolio is the aggregate owning the ledger and the risk state. It is
// created explicitly by the caller (the sfo command, a test) and never shared.
package sentifolio
