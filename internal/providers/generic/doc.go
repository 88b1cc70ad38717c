// Package generic implements providers.Source for sites that list every
// chapter on one index page and serve each chapter as a page of plain img
// tags. All markup assumptions live in Contract.
package generic
