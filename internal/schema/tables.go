package schema

const innerJoin = "INNER JOIN"

var personsSelect = LazySelect{
	Table:        "raw_persons",
	KeyFields:    []string{"id"},
	VersionField: "version",
	DeletedField: "is_deleted",
}

var personDistinctIDsSelect = LazySelect{
	Table:        "raw_person_distinct_ids",
	KeyFields:    []string{"distinct_id"},
	VersionField: "version",
	DeletedField: "is_deleted",
}

func rawPersonsTable() *Table {
	return NewTable("raw_persons", "person",
		String("id"),
		DateTime("created_at"),
		Integer("team_id"),
		JSON("properties"),
		Boolean("is_identified"),
		Boolean("is_deleted"),
		Integer("version"),
	).AvoidAsterisk("team_id")
}

func personsTable() *Table {
	t := NewTable("persons", "person",
		String("id"),
		DateTime("created_at"),
		Integer("team_id"),
		JSON("properties"),
		Boolean("is_identified"),
	).AvoidAsterisk("team_id")
	sel := personsSelect
	t.Lazy = &sel
	return t
}

// personJoin joins a person_id column to the deduplicated persons.
func personJoin(fromField string) *LazyJoin {
	return &LazyJoin{
		FromField: fromField,
		ToField:   "id",
		JoinType:  innerJoin,
		JoinTable: rawPersonsTable(),
		Select:    personsSelect,
	}
}

// pdiJoin joins a distinct_id column to the latest person_id it maps to.
func pdiJoin() *LazyJoin {
	return &LazyJoin{
		FromField: "distinct_id",
		ToField:   "distinct_id",
		JoinType:  innerJoin,
		JoinTable: rawPersonDistinctIDsTable(),
		Select:    personDistinctIDsSelect,
	}
}

func rawPersonDistinctIDsTable() *Table {
	return NewTable("raw_person_distinct_ids", "person_distinct_id2",
		String("distinct_id"),
		String("person_id"),
		Integer("team_id"),
		Boolean("is_deleted"),
		Integer("version"),
		Column{Name: "person", Field: personJoin("person_id")},
	).AvoidAsterisk("team_id")
}

func personDistinctIDsTable() *Table {
	t := NewTable("person_distinct_ids", "person_distinct_id2",
		String("distinct_id"),
		String("person_id"),
		Integer("team_id"),
		Column{Name: "person", Field: personJoin("person_id")},
	).AvoidAsterisk("team_id")
	sel := personDistinctIDsSelect
	t.Lazy = &sel
	return t
}

// eventsPersonTable exposes the person columns stored on each event row.
func eventsPersonTable() *Table {
	return NewVirtualTable(
		Renamed("id", "person_id", KindString),
		Renamed("created_at", "person_created_at", KindDateTime),
		Renamed("properties", "person_properties", KindJSON),
	)
}

func eventsTable(opts Options) *Table {
	person := &FieldTraverser{Chain: []string{"pdi", "person"}}
	personID := &FieldTraverser{Chain: []string{"pdi", "person_id"}}
	if opts.PersonOnEvents {
		person = &FieldTraverser{Chain: []string{"poe"}}
		personID = &FieldTraverser{Chain: []string{"poe", "id"}}
	}
	return NewTable("events", "events",
		String("uuid"),
		String("event"),
		JSON("properties"),
		DateTime("timestamp"),
		Integer("team_id"),
		String("distinct_id"),
		String("elements_chain"),
		DateTime("created_at"),
		Column{Name: "pdi", Field: pdiJoin()},
		Column{Name: "poe", Field: eventsPersonTable()},
		Column{Name: "person", Field: person},
		Column{Name: "person_id", Field: personID},
	).AvoidAsterisk("team_id")
}

func sessionRecordingEventsTable() *Table {
	return NewTable("session_recording_events", "session_recording_events",
		String("uuid"),
		DateTime("timestamp"),
		Integer("team_id"),
		String("distinct_id"),
		String("session_id"),
		String("window_id"),
		String("snapshot_data"),
		Integer("events_summary"),
		DateTime("created_at"),
		Column{Name: "pdi", Field: pdiJoin()},
		Column{Name: "person", Field: &FieldTraverser{Chain: []string{"pdi", "person"}}},
		Column{Name: "person_id", Field: &FieldTraverser{Chain: []string{"pdi", "person_id"}}},
	).AvoidAsterisk("team_id")
}

func cohortPeopleTable() *Table {
	return NewTable("cohort_people", "cohortpeople",
		String("person_id"),
		Integer("cohort_id"),
		Integer("team_id"),
		Integer("sign"),
		Integer("version"),
		Column{Name: "person", Field: personJoin("person_id")},
	).AvoidAsterisk("team_id")
}

func staticCohortPeopleTable() *Table {
	return NewTable("static_cohort_people", "person_static_cohort",
		String("person_id"),
		Integer("cohort_id"),
		Integer("team_id"),
		Column{Name: "person", Field: personJoin("person_id")},
	).AvoidAsterisk("team_id")
}

func groupsTable() *Table {
	return NewTable("groups", "groups",
		Renamed("index", "group_type_index", KindInteger),
		Integer("team_id"),
		Renamed("key", "group_key", KindString),
		DateTime("created_at"),
		DateTime("updated_at"),
		Renamed("properties", "group_properties", KindJSON),
	).AvoidAsterisk("team_id")
}

func defaultTables(opts Options) []*Table {
	return []*Table{
		eventsTable(opts),
		rawPersonsTable(),
		personsTable(),
		rawPersonDistinctIDsTable(),
		personDistinctIDsTable(),
		sessionRecordingEventsTable(),
		cohortPeopleTable(),
		staticCohortPeopleTable(),
		groupsTable(),
	}
}
