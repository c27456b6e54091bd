package kraken

// Operation names, also used as error Op values.
const (
	opToken        = "krakenTokenAuthentication"
	opAccounts     = "viewer"
	opCombined     = "getCombinedData"
	opPreferences  = "setVehicleChargePreferences"
	opTriggerBoost = "triggerBoostCharge"
	opDeleteBoost  = "deleteBoostCharge"
	opSuspend      = "suspendControl"
	opResume       = "resumeControl"
)

const mutationToken = `
mutation krakenTokenAuthentication($apiKey: String!) {
  obtainKrakenToken(input: { APIKey: $apiKey }) {
    token
    payload
    refreshToken
  }
}`

const queryAccounts = `
query viewer {
  viewer {
    accounts {
      number
    }
  }
}`

const deviceFields = `
    krakenflexDeviceId
    provider
    vehicleMake
    vehicleModel
    vehicleBatterySizeInKwh
    chargePointMake
    chargePointModel
    chargePointPowerInKw
    status
    suspended
    hasToken
    createdAt`

const dispatchFields = `
    startDtUtc: startDt
    endDtUtc: endDt
    chargeKwh: delta
    meta {
      source
      location
    }`

const queryCombined = `
query getCombinedData($accountNumber: String!) {
  vehicleChargingPreferences(accountNumber: $accountNumber) {
    weekdayTargetTime
    weekdayTargetSoc
    weekendTargetTime
    weekendTargetSoc
  }
  registeredKrakenflexDevice(accountNumber: $accountNumber) {` + deviceFields + `
  }
  plannedDispatches(accountNumber: $accountNumber) {` + dispatchFields + `
  }
  completedDispatches(accountNumber: $accountNumber) {` + dispatchFields + `
  }
}`

const mutationPreferences = `
mutation setVehicleChargePreferences($accountNumber: String!, $targetTime: String!, $targetSocPercent: Int!) {
  setVehicleChargePreferences(input: {
    accountNumber: $accountNumber,
    weekdayTargetTime: $targetTime,
    weekendTargetTime: $targetTime,
    weekdayTargetSoc: $targetSocPercent,
    weekendTargetSoc: $targetSocPercent
  }) {
    krakenflexDevice {
      krakenflexDeviceId
    }
  }
}`

const mutationTriggerBoost = `
mutation triggerBoostCharge($accountNumber: String!) {
  triggerBoostCharge(input: { accountNumber: $accountNumber }) {
    krakenflexDevice {
      krakenflexDeviceId
    }
  }
}`

const mutationDeleteBoost = `
mutation deleteBoostCharge($accountNumber: String!) {
  deleteBoostCharge(input: { accountNumber: $accountNumber }) {
    krakenflexDevice {
      krakenflexDeviceId
    }
  }
}`

const mutationSuspend = `
mutation suspendControl($accountNumber: String!) {
  suspendControl(input: { accountNumber: $accountNumber }) {
    krakenflexDevice {
      krakenflexDeviceId
    }
  }
}`

const mutationResume = `
mutation resumeControl($accountNumber: String!) {
  resumeControl(input: { accountNumber: $accountNumber }) {
    krakenflexDevice {
      krakenflexDeviceId
    }
  }
}`
