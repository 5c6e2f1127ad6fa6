package transaction

// Result accumulates the data signals of one transaction in arrival order.
// Operations read back only the slices they asked the daemon to fill.
type Result struct {
	Packages        []Package
	Details         []Details
	UpdateDetails   []UpdateDetails
	Categories      []Category
	RepoDetails     []RepoDetail
	Files           []Files
	DistroUpgrades  []DistroUpgrade
	OldTransactions []OldTransaction

	// Runtime is the daemon-reported transaction runtime in milliseconds.
	Runtime uint32
}

func (r *Result) add(event Event) {
	switch ev := event.(type) {
	case PackageEvent:
		r.Packages = append(r.Packages, ev.Package)
	case DetailsEvent:
		r.Details = append(r.Details, ev.Details)
	case UpdateDetailsEvent:
		r.UpdateDetails = append(r.UpdateDetails, ev.UpdateDetails)
	case CategoryEvent:
		r.Categories = append(r.Categories, ev.Category)
	case RepoDetailEvent:
		r.RepoDetails = append(r.RepoDetails, ev.RepoDetail)
	case FilesEvent:
		r.Files = append(r.Files, ev.Files)
	case DistroUpgradeEvent:
		r.DistroUpgrades = append(r.DistroUpgrades, ev.DistroUpgrade)
	case OldTransactionEvent:
		r.OldTransactions = append(r.OldTransactions, ev.OldTransaction)
	}
}
