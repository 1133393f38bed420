// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Apart from cron expression parsing in the scheduler, services
// depend only on the domain and the ports.
package services
