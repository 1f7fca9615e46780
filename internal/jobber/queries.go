package jobber

const accountQuery = `
query AccountMetadata {
  account {
    id
    name
    industry
  }
}`

const propertyQuery = `
query property($id: EncodedId!) {
  property(id: $id) {
    id
    address {
      street1
      street2
      city
      province
      country
      postalCode
    }
  }
}`

const createTextFieldMutation = `
mutation CreateTextField($input: CustomFieldConfigurationCreateTextInput!) {
  customFieldConfigurationCreateText(input: $input) {
    customFieldConfiguration {
      id
      name
    }
    userErrors {
      message
      path
    }
  }
}`

const updatePropertyFieldsMutation = `
mutation UpdatePropertyCustomFields($propertyId: EncodedId!, $input: PropertyEditInput!) {
  propertyEdit(propertyId: $propertyId, input: $input) {
    property {
      id
    }
    userErrors {
      message
      path
    }
  }
}`

const disconnectMutation = `
mutation Disconnect {
  appDisconnect {
    app {
      name
    }
    userErrors {
      message
    }
  }
}`
