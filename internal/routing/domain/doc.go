// Package domain holds the value types shared by every stage of the lead
// routing pipeline: leads, partners and their rolling stats, router
// settings, scored candidates, allocation decisions, assignments and the
// distribution report.
//
// Leads and partners are owned by upstream systems and are only read here,
// with the single exception of the assignment commit which moves a lead from
// new to assigned.
package domain
