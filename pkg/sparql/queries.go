package sparql

import "strings"

// queryPrefixes are shared by every extraction query. The vocabulary is
// the CIM-flavored substation ontology the upstream modeling chain emits.
const queryPrefixes = `PREFIX cim: <http://iec.ch/TC57/CIM100#>
PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>
PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>
`

// TopologyQuery selects the containment skeleton: every substation with
// its voltage levels and bays, joined flat. Optional blocks keep
// partially-described levels in the result.
func TopologyQuery() string {
	return build(`
SELECT ?substation ?substationName ?voltageLevel ?voltageLevelName ?voltage ?bay ?bayName ?isCoupling
WHERE {
  ?substation rdf:type cim:Substation .
  OPTIONAL { ?substation cim:IdentifiedObject.name ?substationName }
  OPTIONAL {
    ?voltageLevel cim:VoltageLevel.Substation ?substation .
    OPTIONAL { ?voltageLevel cim:IdentifiedObject.name ?voltageLevelName }
    OPTIONAL { ?voltageLevel cim:VoltageLevel.BaseVoltage/cim:BaseVoltage.nominalVoltage ?voltage }
    OPTIONAL {
      ?bay cim:Bay.VoltageLevel ?voltageLevel .
      OPTIONAL { ?bay cim:IdentifiedObject.name ?bayName }
      OPTIONAL { ?bay cim:Bay.isCoupling ?isCoupling }
    }
  }
}
ORDER BY ?substation ?voltageLevel ?bay`)
}

// EquipmentQuery selects all conducting equipment with type, optional
// subtype, and containing bay. Source order is the upstream document
// position when the exporter recorded one.
func EquipmentQuery() string {
	return build(`
SELECT ?equipment ?name ?type ?subtype ?bay ?sourceOrder
WHERE {
  ?equipment cim:Equipment.EquipmentContainer ?bay ;
             rdf:type/rdfs:label ?type .
  OPTIONAL { ?equipment cim:IdentifiedObject.name ?name }
  OPTIONAL { ?equipment cim:Equipment.subtype ?subtype }
  OPTIONAL { ?equipment cim:IdentifiedObject.sourceOrder ?sourceOrder }
  ?bay rdf:type cim:Bay .
}
ORDER BY ?sourceOrder ?equipment`)
}

// ConnectivityQuery selects the terminal relation: which equipment
// connects to which connectivity node.
func ConnectivityQuery() string {
	return build(`
SELECT ?terminal ?equipment ?cnode ?sourceOrder
WHERE {
  ?terminal cim:Terminal.ConductingEquipment ?equipment ;
            cim:Terminal.ConnectivityNode ?cnode .
  OPTIONAL { ?terminal cim:ACDCTerminal.sequenceNumber ?sourceOrder }
}
ORDER BY ?equipment ?sourceOrder ?terminal`)
}

// NodesQuery selects every declared connectivity node, including nodes no
// terminal touches. Those surface downstream as orphan findings.
func NodesQuery() string {
	return build(`
SELECT ?cnode
WHERE {
  ?cnode rdf:type cim:ConnectivityNode .
}
ORDER BY ?cnode`)
}

func build(body string) string {
	return queryPrefixes + strings.TrimSpace(body) + "\n"
}
