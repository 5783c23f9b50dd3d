// Package tagcheck validates predicted analytics tag values against the
// values a page actually collected.
//
// Quick start:
//
//	c, err := tagcheck.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cmp := c.Compare("page_type", "PDP", "PRODUCT_DETAIL")
//	fmt.Println(cmp.Verdict) // CORRECT
//
// A Checker is safe for concurrent use. Create once, reuse across requests.
package tagcheck
